package detection

import (
	"math"
	"sort"
	"time"

	"tabsense_server/core/domain"
)

const (
	secondsPerDay = 86400.0

	// Heuristic bounds for "likely still open": a recent visit that held
	// attention for a while probably still has its tab.
	stillOpenRecencyWindow = 24 * time.Hour
	stillOpenMinDurationSec = 300.0
)

// ComputeTabMetadata derives the lifecycle view of one logical tab from all
// visits to its URL, plus optional closure records keyed by visit ID. The
// caller supplies now; nothing here reads the wall clock. Returns nil for an
// empty visit list.
func ComputeTabMetadata(visits []*domain.Visit, closures map[int64]*domain.TabClosure, now time.Time) *domain.TabMetadata {
	if len(visits) == 0 {
		return nil
	}

	sorted := make([]*domain.Visit, len(visits))
	copy(sorted, visits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VisitedAt.Before(sorted[j].VisitedAt)
	})

	first := sorted[0]
	last := sorted[len(sorted)-1]

	// The only authoritative closed signal is a closure record for the last
	// visit carrying a close timestamp. Anything else is "unknown".
	status := domain.LifecycleUnknown
	var closedAt *time.Time
	if closure, ok := closures[last.ID]; ok && closure != nil && closure.ClosedAt != nil {
		status = domain.LifecycleClosed
		closedAt = closure.ClosedAt
	}

	// Older clients did not report the tab-open timestamp; fall back to the
	// first visit time.
	openedAt := first.VisitedAt
	if first.TabOpenedAt != nil {
		openedAt = *first.TabOpenedAt
	}

	var ageDays float64
	if status == domain.LifecycleClosed {
		ageDays = closedAt.Sub(openedAt).Seconds() / secondsPerDay
	} else {
		ageDays = now.Sub(openedAt).Seconds() / secondsPerDay
	}

	var inactivityDays float64
	if status == domain.LifecycleClosed {
		inactivityDays = now.Sub(*closedAt).Seconds() / secondsPerDay
	} else {
		inactivityDays = now.Sub(last.VisitedAt).Seconds() / secondsPerDay
	}

	var (
		totalDuration float64
		totalActive   float64
		rateSum       float64
		rateCount     int
		pinned        bool
	)
	for _, v := range sorted {
		var dur float64
		if v.DurationSec != nil {
			dur = *v.DurationSec
			totalDuration += dur
		}
		if v.ActiveSec != nil {
			active := *v.ActiveSec
			// Ingestion data is messy; active time can exceed total when the
			// client clock drifts. Clamp rather than trust it.
			if v.DurationSec != nil && active > dur {
				active = dur
			}
			totalActive += active
		}
		if v.EngagementRate != nil {
			rateSum += *v.EngagementRate
			rateCount++
		}
		if v.IsPinned() {
			pinned = true
		}
	}

	avgEngagement := 0.0
	if rateCount > 0 {
		avgEngagement = rateSum / float64(rateCount)
	}

	likelyStillOpen := false
	if status == domain.LifecycleUnknown {
		recent := now.Sub(last.VisitedAt) <= stillOpenRecencyWindow
		held := last.DurationSec != nil && *last.DurationSec > stillOpenMinDurationSec
		likelyStillOpen = recent && held
	}

	return &domain.TabMetadata{
		URL:               last.URL,
		Title:             last.Title,
		Domain:            last.Domain,
		VisitCount:        len(sorted),
		FirstVisitID:      first.ID,
		FirstVisitedAt:    first.VisitedAt,
		LastVisitedAt:     last.VisitedAt,
		TabAgeDays:        roundTo1(ageDays),
		DaysSinceActivity: roundTo1(inactivityDays),
		Status:            status,
		TotalDurationSec:  totalDuration,
		TotalActiveSec:    totalActive,
		AvgEngagementRate: avgEngagement,
		LikelyStillOpen:   likelyStillOpen,
		IsSingleVisit:     len(sorted) == 1,
		IsPinned:          pinned,
	}
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
