package detection

import (
	"math"
	"testing"

	"tabsense_server/core/domain"
)

func TestInferContentType(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		url    string
		want   domain.ContentType
	}{
		{"docs subdomain", "docs.stripe.com", "https://docs.stripe.com/payments", domain.ContentDocumentation},
		{"docs path", "redis.io", "https://redis.io/docs/latest/", domain.ContentDocumentation},
		{"tutorial path", "golang.org", "https://golang.org/docs/tutorial/web-service", domain.ContentTutorial},
		{"medium post", "medium.com", "https://medium.com/@a/some-post", domain.ContentBlog},
		{"blog path", "company.com", "https://company.com/blog/launch", domain.ContentBlog},
		{"article path", "site.com", "https://site.com/articles/123", domain.ContentArticle},
		{"github pr", "github.com", "https://github.com/org/repo/pull/42", domain.ContentCodeReview},
		{"github issue", "github.com", "https://github.com/org/repo/issues/7", domain.ContentIssueTracker},
		{"jira board", "mycorp.atlassian.net", "https://mycorp.atlassian.net/browse/ENG-1", domain.ContentIssueTracker},
		{"reddit", "reddit.com", "https://reddit.com/r/golang", domain.ContentSocialMedia},
		{"old reddit", "old.reddit.com", "https://old.reddit.com/r/golang", domain.ContentSocialMedia},
		{"google search", "google.com", "https://google.com/search?q=x", domain.ContentSearchResults},
		{"gmail not search", "mail.google.com", "https://mail.google.com/mail/u/0", domain.ContentUnknown},
		{"hacker news", "news.ycombinator.com", "https://news.ycombinator.com/item?id=1", domain.ContentNewsFeed},
		{"plain site", "example.com", "https://example.com/page", domain.ContentUnknown},
		// Order matters: a docs path on a search host classifies as docs.
		{"docs beat search host", "google.com", "https://google.com/docs/reference/", domain.ContentDocumentation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferContentType(tt.domain, tt.url)
			if got != tt.want {
				t.Errorf("InferContentType(%q, %q) = %v, want %v", tt.domain, tt.url, got, tt.want)
			}
		})
	}
}

func TestAgeWeightTiers(t *testing.T) {
	tests := []struct {
		ageDays float64
		want    float64
	}{
		{10, 1.5},
		{7, 1.5},
		{5.5, 1.3},
		{3, 1.0},
		{2, 0.7},
		{0.3, 0.5},
	}
	for _, tt := range tests {
		if got := ageWeightFor(tt.ageDays); got != tt.want {
			t.Errorf("ageWeightFor(%v) = %v, want %v", tt.ageDays, got, tt.want)
		}
	}
}

func TestRank_AnnotatesAndSorts(t *testing.T) {
	ranker := NewValueRanker()

	tutorial := &domain.HoarderTabResult{
		URL:     "https://learnsite.dev/docs/tutorial/channels",
		Domain:  "learnsite.dev",
		AgeDays: 10,
		Score:   70,
	}
	search := &domain.HoarderTabResult{
		URL:     "https://google.com/search?q=error+message",
		Domain:  "google.com",
		AgeDays: 2,
		Score:   72,
	}

	ranked := ranker.Rank([]*domain.HoarderTabResult{search, tutorial})
	if len(ranked) != 2 {
		t.Fatalf("len = %d", len(ranked))
	}

	// 70 x 1.5 x 1.5 = 157.5 for the old tutorial,
	// 72 x 0.7 x 0.6 = 30.24 for the fresh search page.
	if ranked[0].URL != tutorial.URL {
		t.Errorf("expected the old tutorial first, got %s", ranked[0].URL)
	}
	if ranked[0].ValueRank == nil || math.Abs(*ranked[0].ValueRank-157.5) > 1e-9 {
		t.Errorf("tutorial value_rank = %v, want 157.5", ranked[0].ValueRank)
	}
	if ranked[1].ValueRank == nil || math.Abs(*ranked[1].ValueRank-30.24) > 1e-9 {
		t.Errorf("search value_rank = %v, want 30.24", ranked[1].ValueRank)
	}

	bd := ranked[0].ValueBreakdown
	if bd == nil || bd.ContentType != domain.ContentTutorial || bd.AgeWeight != 1.5 || bd.ContentWeight != 1.5 {
		t.Errorf("tutorial breakdown = %+v", bd)
	}
}

func TestRank_TieBreaksByURL(t *testing.T) {
	ranker := NewValueRanker()

	a := &domain.HoarderTabResult{URL: "https://a.example.com/x", Domain: "a.example.com", AgeDays: 4, Score: 60}
	b := &domain.HoarderTabResult{URL: "https://b.example.com/x", Domain: "b.example.com", AgeDays: 4, Score: 60}

	ranked := ranker.Rank([]*domain.HoarderTabResult{b, a})
	if ranked[0].URL != a.URL {
		t.Errorf("tie should break on URL ascending, got %s first", ranked[0].URL)
	}
}

func TestRank_EmptyInput(t *testing.T) {
	ranker := NewValueRanker()
	if got := ranker.Rank(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
