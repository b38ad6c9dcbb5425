// Package routine scores how habitual a user's relationship with a domain
// is and classifies the domain's role. Routine domains feed the whitelist
// so the hoarder scorer leaves them alone.
package routine

import (
	"fmt"

	"tabsense_server/core/domain"
)

// DefaultThreshold is the score at or above which a domain counts as
// routine.
const DefaultThreshold = 70

// Type-classification cut points.
const (
	workToolMinVisits      = 15
	workToolMaxMeanSec     = 600
	workToolMinDays        = 10
	referenceMinVisits     = 20
	referenceMaxMeanSec    = 300
	entertainmentMinVisits = 8
	entertainmentMaxVisits = 20
)

// Detector computes routine scores from a domain's visit history.
type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Detect scores one domain's visit history. Score is the sum of four
// capped factors: frequency (0-40), consistency (0-30), time pattern
// (0-20), and engagement pattern (0-10). No visits means not routine,
// score 0.
func (d *Detector) Detect(dom string, visits []*domain.Visit) *domain.RoutineResult {
	result := &domain.RoutineResult{Domain: dom}
	if len(visits) == 0 {
		return result
	}

	visitCount := len(visits)
	daysActive := distinctDays(visits)
	meanDuration, hasDurations := meanDurationSec(visits)

	factors := []domain.ScoreFactor{
		frequencyFactor(visitCount),
		consistencyFactor(daysActive),
		timePatternFactor(visits),
		engagementFactor(meanDuration, hasDurations, visitCount),
	}

	total := 0.0
	for _, f := range factors {
		total += f.Points
	}

	result.Score = total
	result.Factors = factors
	result.VisitCount = visitCount
	result.DaysActive = daysActive
	result.IsRoutine = total >= d.threshold

	if result.IsRoutine {
		result.Type = classifyType(visitCount, daysActive, meanDuration, hasDurations)
	}

	return result
}

func frequencyFactor(visitCount int) domain.ScoreFactor {
	var points float64
	switch {
	case visitCount >= 21:
		points = 40
	case visitCount >= 11:
		points = 30
	case visitCount >= 6:
		points = 20
	case visitCount >= 3:
		points = 10
	}
	return domain.ScoreFactor{
		Name:        "frequency",
		Points:      points,
		Explanation: fmt.Sprintf("%d visits in window", visitCount),
	}
}

func consistencyFactor(daysActive int) domain.ScoreFactor {
	var points float64
	switch {
	case daysActive >= 20:
		points = 30
	case daysActive >= 10:
		points = 25
	case daysActive >= 5:
		points = 20
	case daysActive >= 3:
		points = 15
	case daysActive >= 2:
		points = 10
	}
	// A single active day is a binge, not a routine: 0 points.
	return domain.ScoreFactor{
		Name:        "consistency",
		Points:      points,
		Explanation: fmt.Sprintf("active on %d distinct days", daysActive),
	}
}

// timePatternFactor rewards visits concentrated at the same hour of day.
func timePatternFactor(visits []*domain.Visit) domain.ScoreFactor {
	hourCounts := make(map[int]int, 24)
	for _, v := range visits {
		hourCounts[v.VisitedAt.UTC().Hour()]++
	}
	max := 0
	for _, c := range hourCounts {
		if c > max {
			max = c
		}
	}
	concentration := float64(max) / float64(len(visits))

	var points float64
	switch {
	case concentration >= 0.6:
		points = 20
	case concentration >= 0.4:
		points = 15
	case concentration >= 0.3:
		points = 10
	default:
		points = 5
	}
	return domain.ScoreFactor{
		Name:        "time_pattern",
		Points:      points,
		Explanation: fmt.Sprintf("%.0f%% of visits in the same hour of day", concentration*100),
	}
}

func engagementFactor(meanDuration float64, hasDurations bool, visitCount int) domain.ScoreFactor {
	var points float64
	explanation := "no durations recorded"
	switch {
	case !hasDurations:
		points = 5
	case meanDuration < 300 && visitCount >= 10:
		points = 10
		explanation = "short frequent visits, tool-like usage"
	case meanDuration < 600:
		points = 7
		explanation = fmt.Sprintf("mean visit %.0fs", meanDuration)
	default:
		points = 3
		explanation = fmt.Sprintf("long visits, mean %.0fs", meanDuration)
	}
	return domain.ScoreFactor{
		Name:        "engagement_pattern",
		Points:      points,
		Explanation: explanation,
	}
}

// classifyType picks the routine type by fixed priority. Work-tool usage
// is checked first since its signature (many short visits across many
// days) also satisfies looser patterns below it.
func classifyType(visitCount, daysActive int, meanDuration float64, hasDurations bool) domain.WhitelistReason {
	if visitCount >= workToolMinVisits && hasDurations && meanDuration < workToolMaxMeanSec && daysActive >= workToolMinDays {
		return domain.ReasonWorkTool
	}
	if visitCount >= referenceMinVisits && hasDurations && meanDuration < referenceMaxMeanSec {
		return domain.ReasonReference
	}
	if visitCount >= entertainmentMinVisits && visitCount < entertainmentMaxVisits {
		return domain.ReasonEntertainmentRoutine
	}
	return domain.ReasonRoutineSite
}

func distinctDays(visits []*domain.Visit) int {
	days := make(map[string]struct{}, len(visits))
	for _, v := range visits {
		days[v.VisitedAt.UTC().Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

// meanDurationSec averages only visits that carry a duration. The second
// return reports whether any did.
func meanDurationSec(visits []*domain.Visit) (float64, bool) {
	var sum float64
	var n int
	for _, v := range visits {
		if v.DurationSec != nil {
			sum += *v.DurationSec
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
