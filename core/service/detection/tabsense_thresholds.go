// Package detection implements the behavioral scoring engine: adaptive
// thresholds, tab lifecycle computation, the multi-factor hoarder scorer,
// and value ranking of detected hoarder tabs.
package detection

import (
	"math"

	"tabsense_server/core/domain"
	"tabsense_server/pkg/apperr"
)

// BehaviorTier names a visit-count tier for threshold scaling.
type BehaviorTier string

const (
	TierCompulsive BehaviorTier = "compulsive"
	TierFrequent   BehaviorTier = "frequent"
	TierRegular    BehaviorTier = "regular"
)

// Weekly baseline visit counts per tier. All visit-count thresholds scale
// linearly from these against the 7-day baseline.
const (
	baselineCompulsiveVisits = 50
	baselineFrequentVisits   = 20
	baselineRegularVisits    = 10

	baselineSerialOpenerVisits        = 3
	baselineSerialOpenerEngagementSec = 120
)

// Fixed hour thresholds for frequency classification. These deliberately do
// NOT scale with the analysis period: "checked every 20 minutes" means the
// same thing in a 1-day window and a 90-day window.
const (
	compulsiveMaxHoursBetween = 0.5
	frequentMaxHoursBetween   = 2.0
	regularMaxHoursBetween    = 8.0
)

// Engagement-depth second thresholds, also fixed.
const (
	quickGlanceMaxSec = 5.0
	briefCheckMaxSec  = 15.0
	scanMaxSec        = 60.0
)

// serialOpenerVisitsPerDay is the period-independent qualification floor.
// Unlike the weekly baselines above, this rate is fixed by design so short
// windows are not rewarded.
const serialOpenerVisitsPerDay = 0.43

// minPeriodDays is the shortest analysis period the calculator accepts.
const minPeriodDays = 0.5

// Thresholds derives all frequency/engagement thresholds for one analysis
// period so behavior classification is consistent across window lengths.
type Thresholds struct {
	periodDays  float64
	scaleFactor float64
}

// NewThresholds creates a threshold calculator for the given period length
// in days. Periods below half a day are rejected; there is no silent
// defaulting.
func NewThresholds(periodDays float64) (*Thresholds, error) {
	if periodDays <= 0 {
		return nil, apperr.InvalidInput("period_days", "must be positive")
	}
	if periodDays < minPeriodDays {
		return nil, apperr.InvalidInput("period_days", "must be at least 0.5")
	}
	return &Thresholds{
		periodDays:  periodDays,
		scaleFactor: periodDays / 7.0,
	}, nil
}

// PeriodDays returns the period this calculator was built for.
func (t *Thresholds) PeriodDays() float64 {
	return t.periodDays
}

// MinVisitsForBehavior returns the scaled visit-count threshold for a tier.
func (t *Thresholds) MinVisitsForBehavior(tier BehaviorTier) (int, error) {
	var baseline float64
	switch tier {
	case TierCompulsive:
		baseline = baselineCompulsiveVisits
	case TierFrequent:
		baseline = baselineFrequentVisits
	case TierRegular:
		baseline = baselineRegularVisits
	default:
		return 0, apperr.InvalidInput("tier", "unknown behavior tier: "+string(tier))
	}
	return int(math.Round(baseline * t.scaleFactor)), nil
}

// ClassifyBehaviorByVisits maps a visit count onto the behavior vocabulary.
// Tiers are checked most-strict first; meeting a threshold exactly lands in
// the stricter tier.
func (t *Thresholds) ClassifyBehaviorByVisits(count int) (domain.BehaviorType, error) {
	if count < 0 {
		return "", apperr.InvalidInput("visit_count", "must not be negative")
	}

	compulsive, _ := t.MinVisitsForBehavior(TierCompulsive)
	frequent, _ := t.MinVisitsForBehavior(TierFrequent)
	regular, _ := t.MinVisitsForBehavior(TierRegular)

	switch {
	case count >= compulsive:
		return domain.BehaviorCompulsiveChecking, nil
	case count >= frequent:
		return domain.BehaviorFrequentMonitoring, nil
	case count >= regular:
		return domain.BehaviorRegularReference, nil
	default:
		return domain.BehaviorPeriodicRevisit, nil
	}
}

// ClassifyBehaviorByFrequency maps the average gap between visits onto the
// behavior vocabulary using fixed hour thresholds. A nil gap (single visit,
// no span) classifies as periodic revisit.
func (t *Thresholds) ClassifyBehaviorByFrequency(avgHoursBetween *float64) (domain.BehaviorType, error) {
	if avgHoursBetween == nil {
		return domain.BehaviorPeriodicRevisit, nil
	}
	if *avgHoursBetween < 0 {
		return "", apperr.InvalidInput("avg_hours_between", "must not be negative")
	}

	switch {
	case *avgHoursBetween < compulsiveMaxHoursBetween:
		return domain.BehaviorCompulsiveChecking, nil
	case *avgHoursBetween < frequentMaxHoursBetween:
		return domain.BehaviorFrequentMonitoring, nil
	case *avgHoursBetween < regularMaxHoursBetween:
		return domain.BehaviorRegularReference, nil
	default:
		return domain.BehaviorPeriodicRevisit, nil
	}
}

// ClassifyEngagementType maps average engaged seconds per visit onto the
// engagement vocabulary. Nil means no engagement recorded, which reads as a
// quick glance.
func (t *Thresholds) ClassifyEngagementType(avgSecondsPerVisit *float64) (domain.EngagementType, error) {
	if avgSecondsPerVisit == nil {
		return domain.EngagementQuickGlance, nil
	}
	if *avgSecondsPerVisit < 0 {
		return "", apperr.InvalidInput("avg_seconds_per_visit", "must not be negative")
	}

	switch {
	case *avgSecondsPerVisit < quickGlanceMaxSec:
		return domain.EngagementQuickGlance, nil
	case *avgSecondsPerVisit < briefCheckMaxSec:
		return domain.EngagementBriefCheck, nil
	case *avgSecondsPerVisit < scanMaxSec:
		return domain.EngagementScan, nil
	default:
		return domain.EngagementShallowWork, nil
	}
}

// MinSerialOpenerVisits returns the scaled visit floor for serial opener
// consideration, never below 2 however short the period.
func (t *Thresholds) MinSerialOpenerVisits() int {
	scaled := int(math.Round(baselineSerialOpenerVisits * t.scaleFactor))
	if scaled < 2 {
		return 2
	}
	return scaled
}

// MaxSerialOpenerEngagementSeconds returns the scaled cumulative engagement
// ceiling under which repeated opens count as "opened, not consumed".
func (t *Thresholds) MaxSerialOpenerEngagementSeconds() float64 {
	return baselineSerialOpenerEngagementSec * t.scaleFactor
}

// QualifiesAsSerialOpener reports whether a resource's reopen rate crosses
// the fixed visits-per-day floor. The rate is independent of the period
// this calculator was constructed with.
func (t *Thresholds) QualifiesAsSerialOpener(visitCount int, days float64) (bool, error) {
	if days <= 0 {
		return false, apperr.InvalidInput("days", "must be positive")
	}
	if visitCount < 0 {
		return false, apperr.InvalidInput("visit_count", "must not be negative")
	}
	return float64(visitCount)/days >= serialOpenerVisitsPerDay, nil
}
