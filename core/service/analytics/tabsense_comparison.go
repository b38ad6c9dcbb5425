package analytics

import (
	"sort"

	"tabsense_server/core/domain"
)

// trendThresholdPct is the significance bar for calling a change a trend.
const trendThresholdPct = 20.0

// Compare diffs two classified periods keyed by normalized URL. Entries
// are ordered current-first (by visit count descending) followed by
// resolved resources; transitions are ranked by absolute tier delta,
// escalations before de-escalations on ties.
func Compare(current, previous []*domain.SerialOpenerResult) *domain.ComparisonReport {
	prevByURL := make(map[string]*domain.SerialOpenerResult, len(previous))
	for _, r := range previous {
		prevByURL[r.URL] = r
	}

	report := &domain.ComparisonReport{
		Entries:     make([]*domain.ComparisonEntry, 0, len(current)+len(previous)),
		Transitions: make([]*domain.TierTransition, 0),
	}

	seen := make(map[string]struct{}, len(current))
	for _, cur := range current {
		seen[cur.URL] = struct{}{}
		prev := prevByURL[cur.URL]

		entry := &domain.ComparisonEntry{
			URL:     cur.URL,
			Current: cur,
		}

		if prev == nil {
			entry.Status = domain.ComparisonNew
			entry.VisitChangePct = percentChange(0, float64(cur.VisitCount))
			entry.EngagementChangePct = percentChange(0, cur.TotalEngagementSec)
		} else {
			entry.Status = domain.ComparisonContinued
			entry.Previous = prev
			entry.VisitChangePct = percentChange(float64(prev.VisitCount), float64(cur.VisitCount))
			entry.EngagementChangePct = percentChange(prev.TotalEngagementSec, cur.TotalEngagementSec)

			if delta := cur.Behavior.Severity() - prev.Behavior.Severity(); delta != 0 {
				report.Transitions = append(report.Transitions, &domain.TierTransition{
					URL:   cur.URL,
					From:  prev.Behavior,
					To:    cur.Behavior,
					Delta: delta,
				})
			}
		}
		entry.Trend = trendFor(entry.VisitChangePct)
		report.Entries = append(report.Entries, entry)
	}

	// Resources present last period but gone now.
	for _, prev := range previous {
		if _, ok := seen[prev.URL]; ok {
			continue
		}
		report.Entries = append(report.Entries, &domain.ComparisonEntry{
			URL:                 prev.URL,
			Status:              domain.ComparisonResolved,
			Previous:            prev,
			VisitChangePct:      percentChange(float64(prev.VisitCount), 0),
			EngagementChangePct: percentChange(prev.TotalEngagementSec, 0),
			Trend:               domain.TrendDecreasing,
		})
	}

	sort.SliceStable(report.Transitions, func(i, j int) bool {
		ai, aj := abs(report.Transitions[i].Delta), abs(report.Transitions[j].Delta)
		if ai != aj {
			return ai > aj
		}
		// Escalations first on equal magnitude.
		return report.Transitions[i].Delta > report.Transitions[j].Delta
	})

	return report
}

// percentChange handles the degenerate baselines explicitly: nothing to
// nothing is flat, appearing from zero reads as +100%, vanishing to zero
// as -100%.
func percentChange(previous, current float64) float64 {
	switch {
	case previous == 0 && current == 0:
		return 0
	case previous == 0:
		return 100
	case current == 0:
		return -100
	default:
		return (current - previous) / previous * 100
	}
}

func trendFor(changePct float64) domain.Trend {
	switch {
	case changePct >= trendThresholdPct:
		return domain.TrendIncreasing
	case changePct <= -trendThresholdPct:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
