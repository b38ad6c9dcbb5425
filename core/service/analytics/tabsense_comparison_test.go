package analytics

import (
	"math"
	"testing"

	"tabsense_server/core/domain"
)

func opener(url string, visits int, engagement float64, behavior domain.BehaviorType) *domain.SerialOpenerResult {
	return &domain.SerialOpenerResult{
		URL:                url,
		VisitCount:         visits,
		TotalEngagementSec: engagement,
		Behavior:           behavior,
	}
}

func TestPercentChange_SpecialCases(t *testing.T) {
	tests := []struct {
		prev, cur, want float64
	}{
		{0, 0, 0},
		{0, 5, 100},
		{5, 0, -100},
		{10, 15, 50},
		{20, 10, -50},
	}
	for _, tt := range tests {
		if got := percentChange(tt.prev, tt.cur); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("percentChange(%v, %v) = %v, want %v", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestCompare_Statuses(t *testing.T) {
	current := []*domain.SerialOpenerResult{
		opener("a.com/x", 10, 100, domain.BehaviorFrequentMonitoring),
		opener("new.com/x", 6, 50, domain.BehaviorRegularReference),
	}
	previous := []*domain.SerialOpenerResult{
		opener("a.com/x", 8, 90, domain.BehaviorRegularReference),
		opener("gone.com/x", 5, 40, domain.BehaviorRegularReference),
	}

	report := Compare(current, previous)
	if len(report.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(report.Entries))
	}

	byURL := make(map[string]*domain.ComparisonEntry)
	for _, e := range report.Entries {
		byURL[e.URL] = e
	}

	if e := byURL["a.com/x"]; e.Status != domain.ComparisonContinued {
		t.Errorf("a.com/x status = %v", e.Status)
	}
	if e := byURL["new.com/x"]; e.Status != domain.ComparisonNew || e.VisitChangePct != 100 {
		t.Errorf("new.com/x = %+v", e)
	}
	if e := byURL["gone.com/x"]; e.Status != domain.ComparisonResolved || e.VisitChangePct != -100 {
		t.Errorf("gone.com/x = %+v", e)
	}
	if e := byURL["gone.com/x"]; e.Trend != domain.TrendDecreasing {
		t.Errorf("resolved trend = %v", e.Trend)
	}
}

func TestCompare_TrendThreshold(t *testing.T) {
	tests := []struct {
		name       string
		prevVisits int
		curVisits  int
		want       domain.Trend
	}{
		{"up 25 percent", 8, 10, domain.TrendIncreasing},
		{"down 25 percent", 8, 6, domain.TrendDecreasing},
		{"up 12 percent is noise", 8, 9, domain.TrendStable},
		{"flat", 8, 8, domain.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Compare(
				[]*domain.SerialOpenerResult{opener("a.com/x", tt.curVisits, 10, domain.BehaviorRegularReference)},
				[]*domain.SerialOpenerResult{opener("a.com/x", tt.prevVisits, 10, domain.BehaviorRegularReference)},
			)
			if got := report.Entries[0].Trend; got != tt.want {
				t.Errorf("trend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare_Transitions(t *testing.T) {
	current := []*domain.SerialOpenerResult{
		opener("big.com/x", 30, 10, domain.BehaviorCompulsiveChecking), // +3
		opener("up.com/x", 10, 10, domain.BehaviorFrequentMonitoring),  // +1
		opener("down.com/x", 4, 10, domain.BehaviorPeriodicRevisit),    // -1
		opener("flat.com/x", 5, 10, domain.BehaviorRegularReference),   // 0
	}
	previous := []*domain.SerialOpenerResult{
		opener("big.com/x", 4, 10, domain.BehaviorPeriodicRevisit),
		opener("up.com/x", 8, 10, domain.BehaviorRegularReference),
		opener("down.com/x", 6, 10, domain.BehaviorRegularReference),
		opener("flat.com/x", 5, 10, domain.BehaviorRegularReference),
	}

	report := Compare(current, previous)
	if len(report.Transitions) != 3 {
		t.Fatalf("transitions = %d, want 3 (no entry for unchanged tier)", len(report.Transitions))
	}

	// Largest magnitude first; on equal magnitude, escalation before
	// de-escalation.
	if report.Transitions[0].URL != "big.com/x" || report.Transitions[0].Delta != 3 {
		t.Errorf("first transition = %+v", report.Transitions[0])
	}
	if report.Transitions[1].URL != "up.com/x" || report.Transitions[1].Delta != 1 {
		t.Errorf("second transition = %+v", report.Transitions[1])
	}
	if report.Transitions[2].URL != "down.com/x" || report.Transitions[2].Delta != -1 {
		t.Errorf("third transition = %+v", report.Transitions[2])
	}
}

func TestCompare_EmptyPeriods(t *testing.T) {
	report := Compare(nil, nil)
	if len(report.Entries) != 0 || len(report.Transitions) != 0 {
		t.Errorf("empty compare produced %+v", report)
	}
}
