package detection

import (
	"strings"
	"testing"
	"time"

	"tabsense_server/core/domain"
)

const testHoarderThreshold = 60

func neutralContext() *domain.DomainContext {
	return &domain.DomainContext{
		Domain: "example.com",
		Type:   domain.DomainTypeOther,
	}
}

func staleTab() *domain.TabMetadata {
	return &domain.TabMetadata{
		URL:               "https://example.com/article",
		Title:             "article",
		Domain:            "example.com",
		VisitCount:        1,
		FirstVisitID:      1,
		FirstVisitedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		LastVisitedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		TabAgeDays:        10,
		DaysSinceActivity: 10,
		Status:            domain.LifecycleUnknown,
		AvgEngagementRate: 0.05,
		IsSingleVisit:     true,
	}
}

func TestScore_PinnedAlwaysExcluded(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	meta := staleTab()
	meta.IsPinned = true

	res := s.Score(meta, neutralContext())
	if res.IsHoarder {
		t.Error("pinned tab must never be a hoarder")
	}
	if res.Score != 0 {
		t.Errorf("score = %v, want 0", res.Score)
	}
	if res.Confidence != domain.ConfidenceExcluded {
		t.Errorf("confidence = %v, want excluded", res.Confidence)
	}
}

func TestScore_StrongWhitelistExcluded(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.IsWhitelisted = true
	dctx.WhitelistReason = domain.ReasonWorkTool
	dctx.IsConditional = false

	res := s.Score(staleTab(), dctx)
	if res.Confidence != domain.ConfidenceExcluded {
		t.Errorf("confidence = %v, want excluded", res.Confidence)
	}
	if res.Override != nil {
		t.Error("strong whitelist exclusion must not carry an override")
	}
}

func TestScore_ConditionalWhitelistSevereOverride(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.IsWhitelisted = true
	dctx.IsConditional = true
	dctx.WhitelistReason = domain.ReasonEntertainmentRoutine

	// age 10d, single visit, engagement 0.05: the severe pattern fires.
	res := s.Score(staleTab(), dctx)
	if res.Confidence == domain.ConfidenceExcluded {
		t.Fatal("severe pattern should override the conditional whitelist")
	}
	if res.Override == nil {
		t.Fatal("expected whitelist override annotation")
	}
	if res.Override.Reason != domain.ReasonEntertainmentRoutine {
		t.Errorf("override reason = %v", res.Override.Reason)
	}
	if !res.IsHoarder {
		t.Errorf("score = %v, expected hoarder", res.Score)
	}
}

func TestScore_ConditionalWhitelistMildTabExcluded(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.IsWhitelisted = true
	dctx.IsConditional = true
	dctx.WhitelistReason = domain.ReasonReference

	meta := staleTab()
	meta.VisitCount = 4
	meta.IsSingleVisit = false // revisited, not severe

	res := s.Score(meta, dctx)
	if res.Confidence != domain.ConfidenceExcluded {
		t.Errorf("confidence = %v, want excluded for non-severe conditional", res.Confidence)
	}
}

func TestScore_LenientRulesExcluded(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.ApplyLenientRules = true

	res := s.Score(staleTab(), dctx)
	if res.Confidence != domain.ConfidenceExcluded {
		t.Errorf("confidence = %v, want excluded under lenient rules", res.Confidence)
	}
}

func TestScore_FactorBreakdown(t *testing.T) {
	s := NewScorer(testHoarderThreshold)

	// 10 days old (40) + 10 days inactive (30) + single visit (20) +
	// low engagement (10) + neutral domain (0) = 100.
	res := s.Score(staleTab(), neutralContext())
	if res.Score != 100 {
		t.Fatalf("score = %v, want 100", res.Score)
	}
	if res.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %v, want high", res.Confidence)
	}
	if res.SuggestedAction != domain.ActionClose {
		t.Errorf("suggested_action = %v, want close", res.SuggestedAction)
	}
	if len(res.Factors) != 5 {
		t.Fatalf("factors = %d, want 5", len(res.Factors))
	}

	want := map[string]float64{
		"tab_age":        40,
		"inactivity":     30,
		"visit_pattern":  20,
		"engagement":     10,
		"domain_context": 0,
	}
	for _, f := range res.Factors {
		if pts, ok := want[f.Name]; !ok || f.Points != pts {
			t.Errorf("factor %s = %v, want %v", f.Name, f.Points, pts)
		}
	}
}

func TestScore_ConfidenceTiers(t *testing.T) {
	s := NewScorer(testHoarderThreshold)

	tests := []struct {
		name       string
		mutate     func(*domain.TabMetadata)
		confidence domain.Confidence
		hoarder    bool
		action     domain.SuggestedAction
	}{
		{
			"fresh tab scores nothing",
			func(m *domain.TabMetadata) {
				m.TabAgeDays = 0.2
				m.DaysSinceActivity = 0.2
				m.AvgEngagementRate = 0.8
				m.IsSingleVisit = false
				m.VisitCount = 6
			},
			domain.ConfidenceNotHoarder, false, domain.ActionKeep,
		},
		{
			"low tier noted but not flagged",
			func(m *domain.TabMetadata) {
				// age 2d (10) + inactivity 2d (30) = 40
				m.TabAgeDays = 2
				m.DaysSinceActivity = 2
				m.AvgEngagementRate = 0.5
				m.IsSingleVisit = false
				m.VisitCount = 3
			},
			domain.ConfidenceLow, false, domain.ActionKeep,
		},
		{
			"medium tier flagged",
			func(m *domain.TabMetadata) {
				// age 4d (25) + inactivity 4d (30) + engagement (10) = 65
				m.TabAgeDays = 4
				m.DaysSinceActivity = 4
				m.AvgEngagementRate = 0.05
				m.IsSingleVisit = false
				m.VisitCount = 3
			},
			domain.ConfidenceMedium, true, domain.ActionReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := staleTab()
			tt.mutate(meta)
			res := s.Score(meta, neutralContext())
			if res.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v (score %v)", res.Confidence, tt.confidence, res.Score)
			}
			if res.IsHoarder != tt.hoarder {
				t.Errorf("is_hoarder = %v, want %v", res.IsHoarder, tt.hoarder)
			}
			if res.SuggestedAction != tt.action {
				t.Errorf("suggested_action = %v, want %v", res.SuggestedAction, tt.action)
			}
		})
	}
}

func TestScore_StrictRulesAddDomainPoints(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.ApplyStrictRules = true

	res := s.Score(staleTab(), dctx)
	for _, f := range res.Factors {
		if f.Name == "domain_context" && f.Points != 15 {
			t.Errorf("domain_context = %v, want 15 under strict rules", f.Points)
		}
	}
}

func TestScore_ContentSiteSingleVisitAddsDomainPoints(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	dctx := neutralContext()
	dctx.Type = domain.DomainTypeContentSite

	res := s.Score(staleTab(), dctx)
	for _, f := range res.Factors {
		if f.Name == "domain_context" && f.Points != 15 {
			t.Errorf("domain_context = %v, want 15 for single-visit content site", f.Points)
		}
	}
}

func TestScore_ReasonListsTopThreeFactors(t *testing.T) {
	s := NewScorer(testHoarderThreshold)

	res := s.Score(staleTab(), neutralContext())
	if res.Reason == "" {
		t.Fatal("flagged result must carry a reason")
	}
	parts := strings.Split(res.Reason, reasonSeparator)
	if len(parts) != 3 {
		t.Fatalf("reason has %d parts, want 3: %q", len(parts), res.Reason)
	}
	// Top factor is tab age.
	if !strings.Contains(parts[0], "10.0 days") {
		t.Errorf("first reason part = %q, want the age explanation", parts[0])
	}
}

func TestScore_NotFlaggedHasNoReason(t *testing.T) {
	s := NewScorer(testHoarderThreshold)
	meta := staleTab()
	meta.TabAgeDays = 0.5
	meta.DaysSinceActivity = 0.5
	meta.AvgEngagementRate = 0.9
	meta.IsSingleVisit = false
	meta.VisitCount = 5

	res := s.Score(meta, neutralContext())
	if res.Reason != "" {
		t.Errorf("unflagged result carries reason %q", res.Reason)
	}
}
