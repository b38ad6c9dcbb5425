// Package analytics classifies repeatedly-opened resources and diffs two
// classified periods against each other.
package analytics

import (
	"sort"
	"strings"

	"tabsense_server/core/domain"
	"tabsense_server/core/service/detection"
)

// SerialOpenerAnalyzer finds resources a user keeps reopening without
// actually consuming.
type SerialOpenerAnalyzer struct{}

func NewSerialOpenerAnalyzer() *SerialOpenerAnalyzer {
	return &SerialOpenerAnalyzer{}
}

// Analyze classifies every URL group that crosses the serial-opener rate.
// Groups are consumed in the given order; output is sorted by visit count
// descending, URL ascending on ties.
func (a *SerialOpenerAnalyzer) Analyze(
	groups map[string][]*domain.Visit,
	orderedURLs []string,
	thresholds *detection.Thresholds,
	periodDays float64,
) ([]*domain.SerialOpenerResult, error) {
	minVisits := thresholds.MinSerialOpenerVisits()

	results := make([]*domain.SerialOpenerResult, 0)
	for _, url := range orderedURLs {
		visits := groups[url]
		if len(visits) < minVisits {
			continue
		}

		qualifies, err := thresholds.QualifiesAsSerialOpener(len(visits), periodDays)
		if err != nil {
			return nil, err
		}
		if !qualifies {
			continue
		}

		result, err := ClassifyResource(visits, thresholds)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].VisitCount != results[j].VisitCount {
			return results[i].VisitCount > results[j].VisitCount
		}
		return results[i].URL < results[j].URL
	})

	return results, nil
}

// ClassifyResource computes the behavior and engagement tags for one URL's
// visit history. Visits need not be pre-sorted.
func ClassifyResource(visits []*domain.Visit, thresholds *detection.Thresholds) (*domain.SerialOpenerResult, error) {
	sorted := make([]*domain.Visit, len(visits))
	copy(sorted, visits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VisitedAt.Before(sorted[j].VisitedAt)
	})

	first := sorted[0]
	last := sorted[len(sorted)-1]
	visitCount := len(sorted)

	var totalEngagement float64
	for _, v := range sorted {
		if v.ActiveSec != nil {
			totalEngagement += *v.ActiveSec
		} else if v.DurationSec != nil {
			totalEngagement += *v.DurationSec
		}
	}

	// Rates divide by visit count, not gaps: the reference metric treats a
	// single visit as having no measurable cadence.
	spanHours := last.VisitedAt.Sub(first.VisitedAt).Hours()
	var avgHoursBetween *float64
	if visitCount > 1 && spanHours > 0 {
		h := spanHours / float64(visitCount)
		avgHoursBetween = &h
	}
	avgSecondsPerVisit := totalEngagement / float64(visitCount)

	behavior, err := thresholds.ClassifyBehaviorByFrequency(avgHoursBetween)
	if err != nil {
		return nil, err
	}
	engagement, err := thresholds.ClassifyEngagementType(&avgSecondsPerVisit)
	if err != nil {
		return nil, err
	}

	result := &domain.SerialOpenerResult{
		URL:                NormalizeURL(last.URL),
		Title:              last.Title,
		Domain:             last.Domain,
		VisitCount:         visitCount,
		AvgSecondsPerVisit: avgSecondsPerVisit,
		TotalEngagementSec: totalEngagement,
		Behavior:           behavior,
		Engagement:         engagement,
		FirstVisitedAt:     first.VisitedAt,
		LastVisitedAt:      last.VisitedAt,
	}
	if avgHoursBetween != nil {
		result.AvgHoursBetween = *avgHoursBetween
	}
	return result, nil
}

// NormalizeURL strips scheme, www prefix, trailing slash, and fragment so
// the same resource keys identically across periods.
func NormalizeURL(raw string) string {
	url := raw
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(url, prefix) {
			url = url[len(prefix):]
			break
		}
	}
	url = strings.TrimPrefix(url, "www.")
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimSuffix(url, "/")
	return strings.ToLower(url)
}
