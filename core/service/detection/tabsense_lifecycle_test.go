package detection

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
)

var lifecycleNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func makeVisit(id int64, url string, visitedAt time.Time) *domain.Visit {
	return &domain.Visit{
		ID:        id,
		UserID:    uuid.MustParse("6f1bb0a2-1111-4a58-9a07-000000000001"),
		URL:       url,
		Title:     "title-" + url,
		Domain:    "example.com",
		VisitedAt: visitedAt,
	}
}

func TestComputeTabMetadata_Empty(t *testing.T) {
	if got := ComputeTabMetadata(nil, nil, lifecycleNow); got != nil {
		t.Errorf("expected nil for empty visits, got %+v", got)
	}
}

func TestComputeTabMetadata_SingleVisitNoClosure(t *testing.T) {
	visitedAt := lifecycleNow.Add(-72 * time.Hour)
	v := makeVisit(1, "https://example.com/a", visitedAt)

	meta := ComputeTabMetadata([]*domain.Visit{v}, nil, lifecycleNow)
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if meta.Status != domain.LifecycleUnknown {
		t.Errorf("status = %v, want unknown", meta.Status)
	}
	if !meta.IsSingleVisit {
		t.Error("expected is_single_visit")
	}
	if math.Abs(meta.TabAgeDays-3.0) > 0.05 {
		t.Errorf("tab_age_days = %v, want ~3.0", meta.TabAgeDays)
	}
	if math.Abs(meta.DaysSinceActivity-3.0) > 0.05 {
		t.Errorf("days_since_activity = %v, want ~3.0", meta.DaysSinceActivity)
	}
	if meta.AvgEngagementRate != 0 {
		t.Errorf("avg_engagement_rate = %v, want 0 with no rates", meta.AvgEngagementRate)
	}
	if meta.FirstVisitID != 1 {
		t.Errorf("first_visit_id = %d, want 1", meta.FirstVisitID)
	}
}

func TestComputeTabMetadata_SortsUnorderedVisits(t *testing.T) {
	base := lifecycleNow.Add(-10 * 24 * time.Hour)
	v1 := makeVisit(10, "https://example.com/a", base)
	v2 := makeVisit(11, "https://example.com/a", base.Add(48*time.Hour))
	v3 := makeVisit(12, "https://example.com/a", base.Add(24*time.Hour))
	v2.Title = "latest title"

	meta := ComputeTabMetadata([]*domain.Visit{v2, v3, v1}, nil, lifecycleNow)
	if meta.FirstVisitID != 10 {
		t.Errorf("first_visit_id = %d, want 10", meta.FirstVisitID)
	}
	if !meta.LastVisitedAt.Equal(v2.VisitedAt) {
		t.Errorf("last_visited_at = %v, want %v", meta.LastVisitedAt, v2.VisitedAt)
	}
	if meta.Title != "latest title" {
		t.Errorf("title = %q, want most recent visit's title", meta.Title)
	}
	if meta.VisitCount != 3 {
		t.Errorf("visit_count = %d, want 3", meta.VisitCount)
	}
	if meta.IsSingleVisit {
		t.Error("is_single_visit should be false")
	}
}

func TestComputeTabMetadata_ClosedViaLastVisitClosure(t *testing.T) {
	opened := lifecycleNow.Add(-8 * 24 * time.Hour)
	closed := lifecycleNow.Add(-2 * 24 * time.Hour)

	v1 := makeVisit(20, "https://example.com/a", opened)
	v2 := makeVisit(21, "https://example.com/a", opened.Add(24*time.Hour))
	closures := map[int64]*domain.TabClosure{
		21: {VisitID: 21, TotalOpenSec: 3600, ActiveSec: 900, ClosedAt: &closed},
	}

	meta := ComputeTabMetadata([]*domain.Visit{v1, v2}, closures, lifecycleNow)
	if meta.Status != domain.LifecycleClosed {
		t.Fatalf("status = %v, want closed", meta.Status)
	}
	// Age runs from open to close, inactivity from close to now.
	if math.Abs(meta.TabAgeDays-6.0) > 0.05 {
		t.Errorf("tab_age_days = %v, want ~6.0", meta.TabAgeDays)
	}
	if math.Abs(meta.DaysSinceActivity-2.0) > 0.05 {
		t.Errorf("days_since_activity = %v, want ~2.0", meta.DaysSinceActivity)
	}
	if meta.LikelyStillOpen {
		t.Error("closed tab must not be likely still open")
	}
}

func TestComputeTabMetadata_ClosureForEarlierVisitIgnored(t *testing.T) {
	opened := lifecycleNow.Add(-5 * 24 * time.Hour)
	closed := opened.Add(time.Hour)

	v1 := makeVisit(30, "https://example.com/a", opened)
	v2 := makeVisit(31, "https://example.com/a", opened.Add(24*time.Hour))
	closures := map[int64]*domain.TabClosure{
		30: {VisitID: 30, ClosedAt: &closed},
	}

	meta := ComputeTabMetadata([]*domain.Visit{v1, v2}, closures, lifecycleNow)
	if meta.Status != domain.LifecycleUnknown {
		t.Errorf("status = %v, want unknown (closure keyed to non-last visit)", meta.Status)
	}
}

func TestComputeTabMetadata_TabOpenedAtFallback(t *testing.T) {
	visited := lifecycleNow.Add(-2 * 24 * time.Hour)
	opened := lifecycleNow.Add(-9 * 24 * time.Hour)

	v := makeVisit(40, "https://example.com/a", visited)
	v.TabOpenedAt = &opened

	meta := ComputeTabMetadata([]*domain.Visit{v}, nil, lifecycleNow)
	if math.Abs(meta.TabAgeDays-9.0) > 0.05 {
		t.Errorf("tab_age_days = %v, want ~9.0 (explicit open timestamp)", meta.TabAgeDays)
	}
}

func TestComputeTabMetadata_LikelyStillOpen(t *testing.T) {
	tests := []struct {
		name     string
		lastSeen time.Duration
		duration *float64
		want     bool
	}{
		{"recent long visit", 2 * time.Hour, floatPtr(400), true},
		{"recent short visit", 2 * time.Hour, floatPtr(120), false},
		{"recent no duration", 2 * time.Hour, nil, false},
		{"stale long visit", 30 * time.Hour, floatPtr(400), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := makeVisit(50, "https://example.com/a", lifecycleNow.Add(-tt.lastSeen))
			v.DurationSec = tt.duration
			meta := ComputeTabMetadata([]*domain.Visit{v}, nil, lifecycleNow)
			if meta.LikelyStillOpen != tt.want {
				t.Errorf("likely_still_open = %v, want %v", meta.LikelyStillOpen, tt.want)
			}
		})
	}
}

func TestComputeTabMetadata_Aggregates(t *testing.T) {
	base := lifecycleNow.Add(-48 * time.Hour)
	pinned := true

	v1 := makeVisit(60, "https://example.com/a", base)
	v1.DurationSec = floatPtr(100)
	v1.ActiveSec = floatPtr(60)
	v1.EngagementRate = floatPtr(0.6)

	v2 := makeVisit(61, "https://example.com/a", base.Add(time.Hour))
	v2.DurationSec = floatPtr(200)
	v2.EngagementRate = floatPtr(0.2)
	v2.Metadata = &domain.VisitMetadata{Pinned: &pinned}

	v3 := makeVisit(62, "https://example.com/a", base.Add(2*time.Hour))
	// no duration, no rate: ignored by the averages

	meta := ComputeTabMetadata([]*domain.Visit{v1, v2, v3}, nil, lifecycleNow)
	if meta.TotalDurationSec != 300 {
		t.Errorf("total_duration_sec = %v, want 300", meta.TotalDurationSec)
	}
	if meta.TotalActiveSec != 60 {
		t.Errorf("total_active_sec = %v, want 60", meta.TotalActiveSec)
	}
	if math.Abs(meta.AvgEngagementRate-0.4) > 1e-9 {
		t.Errorf("avg_engagement_rate = %v, want 0.4", meta.AvgEngagementRate)
	}
	if !meta.IsPinned {
		t.Error("expected pinned when any visit carries the flag")
	}
}
