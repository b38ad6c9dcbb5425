package detection

import (
	"sort"
	"strings"

	"tabsense_server/core/domain"
)

// Content weights. Content meant to be consumed outranks work plumbing,
// which outranks feed noise.
const (
	weightDocumentation = 1.5
	weightTutorial      = 1.5
	weightArticle       = 1.4
	weightBlog          = 1.4
	weightCodeReview    = 1.2
	weightIssueTracker  = 1.1
	weightProjectPage   = 1.0
	weightSearchResults = 0.6
	weightSocialMedia   = 0.6
	weightNewsFeed      = 0.7
	weightUnknown       = 1.0
)

var documentationHosts = []string{
	"docs.", "developer.", "devdocs.", "readthedocs.", "wiki.",
}

var documentationPaths = []string{
	"/docs/", "/documentation/", "/reference/", "/manual/", "/guide/", "/tutorial/",
}

var articlePaths = []string{
	"/article/", "/articles/", "/blog/", "/post/", "/posts/", "/story/", "/essay/",
}

var articleHosts = []string{
	"medium.com", "substack.com", "dev.to", "hashnode.", "blogspot.", "wordpress.",
}

var codeReviewPaths = []string{
	"/pull/", "/merge_requests/", "/reviews/", "/compare/", "/commit/",
}

var issueTrackerPatterns = []string{
	"/issues/", "atlassian.net", "jira.", "linear.app", "youtrack.",
}

var socialHosts = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com", "reddit.com",
	"tiktok.com", "linkedin.com", "threads.net", "bsky.app", "mastodon.",
}

var searchHosts = []string{
	"google.", "bing.com", "duckduckgo.com", "kagi.com", "search.", "yandex.",
}

var newsHosts = []string{
	"news.", "cnn.com", "bbc.", "nytimes.com", "reuters.com", "theguardian.com",
	"washingtonpost.com", "hackernews.", "news.ycombinator.com",
}

// ValueRanker annotates scored hoarder tabs with an estimated user value
// and reorders them by it. Raw hoarder score measures "abandoned"; value
// rank measures "worth resurfacing".
type ValueRanker struct{}

func NewValueRanker() *ValueRanker {
	return &ValueRanker{}
}

// Rank annotates each result with value_rank = score x age weight x content
// weight and sorts descending by it. Ties fall back to score, then URL so
// the output order is stable across runs.
func (r *ValueRanker) Rank(results []*domain.HoarderTabResult) []*domain.HoarderTabResult {
	ranked := make([]*domain.HoarderTabResult, len(results))
	copy(ranked, results)

	for _, res := range ranked {
		contentType := InferContentType(res.Domain, res.URL)
		ageWeight := ageWeightFor(res.AgeDays)
		contentWeight := contentWeightFor(contentType)

		value := res.Score * ageWeight * contentWeight
		res.ValueRank = &value
		res.ValueBreakdown = &domain.ValueBreakdown{
			HoarderScore:  res.Score,
			AgeWeight:     ageWeight,
			ContentWeight: contentWeight,
			ContentType:   contentType,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := *ranked[i].ValueRank, *ranked[j].ValueRank
		if vi != vj {
			return vi > vj
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].URL < ranked[j].URL
	})

	return ranked
}

// ageWeightFor favors older tabs: a week-old unread tutorial is a forgotten
// gem, a two-hour-old one is just a tab.
func ageWeightFor(ageDays float64) float64 {
	switch {
	case ageDays >= 7:
		return 1.5
	case ageDays >= 5:
		return 1.3
	case ageDays >= 3:
		return 1.0
	case ageDays >= 1:
		return 0.7
	default:
		return 0.5
	}
}

func contentWeightFor(ct domain.ContentType) float64 {
	switch ct {
	case domain.ContentDocumentation:
		return weightDocumentation
	case domain.ContentTutorial:
		return weightTutorial
	case domain.ContentArticle:
		return weightArticle
	case domain.ContentBlog:
		return weightBlog
	case domain.ContentCodeReview:
		return weightCodeReview
	case domain.ContentIssueTracker:
		return weightIssueTracker
	case domain.ContentProjectPage:
		return weightProjectPage
	case domain.ContentSearchResults:
		return weightSearchResults
	case domain.ContentSocialMedia:
		return weightSocialMedia
	case domain.ContentNewsFeed:
		return weightNewsFeed
	default:
		return weightUnknown
	}
}

// InferContentType classifies a tab purely from domain and URL string
// patterns. Checks run in a fixed order and the first match wins, so a
// documentation page on a search engine's domain still reads as docs.
func InferContentType(host, url string) domain.ContentType {
	host = strings.ToLower(host)
	url = strings.ToLower(url)

	if matchesAny(host, documentationHosts) || containsAny(url, documentationPaths) {
		if strings.Contains(url, "/tutorial") {
			return domain.ContentTutorial
		}
		return domain.ContentDocumentation
	}
	if containsAny(url, articlePaths) || matchesAny(host, articleHosts) {
		if strings.Contains(url, "/blog") || matchesAny(host, articleHosts) {
			return domain.ContentBlog
		}
		return domain.ContentArticle
	}
	if containsAny(url, codeReviewPaths) {
		return domain.ContentCodeReview
	}
	if containsAny(url, issueTrackerPatterns) || matchesAny(host, []string{"jira.", "linear.app", "youtrack."}) {
		return domain.ContentIssueTracker
	}
	if matchesAny(host, socialHosts) {
		return domain.ContentSocialMedia
	}
	// Mail lives on search-company domains but is not a search results page.
	if matchesAny(host, searchHosts) && !strings.HasPrefix(host, "mail.") {
		return domain.ContentSearchResults
	}
	if matchesAny(host, newsHosts) {
		return domain.ContentNewsFeed
	}
	return domain.ContentUnknown
}

// matchesAny reports whether the host equals, is a subdomain of, or starts
// with one of the patterns. Patterns ending in "." are prefix markers,
// others match on domain boundaries.
func matchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, ".") {
			if strings.HasPrefix(host, p) || strings.Contains(host, "."+p) {
				return true
			}
			continue
		}
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
