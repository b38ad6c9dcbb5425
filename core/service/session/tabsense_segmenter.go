// Package session groups a chronological visit stream into research
// sessions: bursts of temporally-clustered tabs treated as one browsing
// task.
package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tabsense_server/core/domain"
)

// Defaults for session qualification.
const (
	DefaultMinTabs     = 3
	DefaultTimeWindow  = 15 * time.Minute
	DefaultMinDuration = 10 * time.Minute
)

// Segmenter clusters visits into candidate research sessions.
type Segmenter struct {
	minTabs     int
	timeWindow  time.Duration
	minDuration time.Duration
}

// NewSegmenter builds a segmenter; non-positive parameters fall back to the
// defaults.
func NewSegmenter(minTabs int, timeWindow, minDuration time.Duration) *Segmenter {
	if minTabs <= 0 {
		minTabs = DefaultMinTabs
	}
	if timeWindow <= 0 {
		timeWindow = DefaultTimeWindow
	}
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}
	return &Segmenter{minTabs: minTabs, timeWindow: timeWindow, minDuration: minDuration}
}

// Segment walks the visit stream once and groups visits whose timestamps
// fall within the window measured from the group's FIRST visit, not from
// the previous one. An evenly-spread burst across a long span therefore
// still splits at window boundaries from each anchor, which is the point:
// a session is "started researching at T", not "never paused".
func (s *Segmenter) Segment(visits []*domain.Visit) []*domain.ResearchSessionCandidate {
	if len(visits) == 0 {
		return nil
	}

	ordered := make([]*domain.Visit, len(visits))
	copy(ordered, visits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].VisitedAt.Before(ordered[j].VisitedAt)
	})

	var sessions []*domain.ResearchSessionCandidate
	var group []*domain.Visit

	flush := func() {
		if candidate := s.buildCandidate(group); candidate != nil {
			sessions = append(sessions, candidate)
		}
		group = nil
	}

	for _, v := range ordered {
		if len(group) == 0 {
			group = append(group, v)
			continue
		}
		anchor := group[0].VisitedAt
		if v.VisitedAt.Sub(anchor) <= s.timeWindow {
			group = append(group, v)
			continue
		}
		flush()
		group = append(group, v)
	}
	flush()

	return sessions
}

// buildCandidate evaluates a closed group and returns nil if it does not
// qualify as a session.
func (s *Segmenter) buildCandidate(group []*domain.Visit) *domain.ResearchSessionCandidate {
	if len(group) < s.minTabs {
		return nil
	}

	first := group[0]
	last := group[len(group)-1]
	span := last.VisitedAt.Sub(first.VisitedAt)
	if span < s.minDuration {
		return nil
	}

	primary := primaryDomain(group)

	domainSet := make(map[string]struct{}, len(group))
	domains := make([]string, 0, len(group))
	visitIDs := make([]int64, 0, len(group))
	var rateSum float64
	var rateCount int

	for _, v := range group {
		visitIDs = append(visitIDs, v.ID)
		if _, seen := domainSet[v.Domain]; !seen {
			domainSet[v.Domain] = struct{}{}
			domains = append(domains, v.Domain)
		}
		if v.EngagementRate != nil {
			rateSum += *v.EngagementRate
			rateCount++
		}
	}

	avgEngagement := 0.0
	if rateCount > 0 {
		avgEngagement = rateSum / float64(rateCount)
	}

	return &domain.ResearchSessionCandidate{
		Name:          sessionName(primary, first.VisitedAt),
		StartedAt:     first.VisitedAt,
		EndedAt:       last.VisitedAt,
		TabCount:      len(group),
		PrimaryDomain: primary,
		Domains:       domains,
		DurationSec:   span.Seconds(),
		AvgEngagement: avgEngagement,
		VisitIDs:      visitIDs,
		Status:        "detected",
	}
}

// primaryDomain is the modal domain of the group. Ties break on first
// appearance in visit order.
func primaryDomain(group []*domain.Visit) string {
	counts := make(map[string]int, len(group))
	order := make([]string, 0, len(group))
	for _, v := range group {
		if _, seen := counts[v.Domain]; !seen {
			order = append(order, v.Domain)
		}
		counts[v.Domain]++
	}

	best := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// sessionName renders e.g. "Golang.org - Mar 1, 9:05am".
func sessionName(primary string, start time.Time) string {
	capitalized := primary
	if capitalized != "" {
		capitalized = strings.ToUpper(capitalized[:1]) + capitalized[1:]
	}
	// Keep the month capitalized, lowercase only the am/pm marker.
	stamp := start.Format("Jan 2, 3:04") + strings.ToLower(start.Format("PM"))
	return fmt.Sprintf("%s - %s", capitalized, stamp)
}
