package detection

import (
	"fmt"
	"sort"
	"strings"

	"tabsense_server/core/domain"
)

// Severe hoarder pattern: old, touched once, barely engaged. This pattern
// overrides a conditional whitelist entry.
const (
	severeMinAgeDays    = 7.0
	severeMaxEngagement = 0.10
)

// Confidence cut points on the raw score.
const (
	confidenceHighMin = 80.0
	confidenceLowMin  = 40.0
)

const reasonSeparator = "; "

// Scorer turns tab lifecycle metrics plus domain context into a hoarder
// verdict. The flagging threshold is injected so tests can vary it.
type Scorer struct {
	threshold float64
}

func NewScorer(threshold float64) *Scorer {
	return &Scorer{threshold: threshold}
}

// Score produces the hoarder verdict for one logical tab. Exclusion rules
// short-circuit scoring entirely; an excluded tab always reports score 0
// and confidence "excluded".
func (s *Scorer) Score(meta *domain.TabMetadata, dctx *domain.DomainContext) *domain.HoarderTabResult {
	result := &domain.HoarderTabResult{
		VisitID:          meta.FirstVisitID,
		URL:              meta.URL,
		Title:            meta.Title,
		Domain:           meta.Domain,
		VisitedAt:        meta.FirstVisitedAt,
		LastActivityAt:   meta.LastVisitedAt,
		AgeDays:          meta.TabAgeDays,
		InactivityDays:   meta.DaysSinceActivity,
		VisitCount:       meta.VisitCount,
		TotalDurationSec: meta.TotalDurationSec,
		EngagementRate:   meta.AvgEngagementRate,
		SuggestedAction:  domain.ActionKeep,
	}

	severe := s.isSeverePattern(meta)

	switch {
	case meta.IsPinned:
		return excluded(result)
	case dctx.IsWhitelisted && !dctx.IsConditional:
		return excluded(result)
	case dctx.IsWhitelisted && dctx.IsConditional && !severe:
		return excluded(result)
	case dctx.ApplyLenientRules:
		return excluded(result)
	}

	if dctx.IsWhitelisted && dctx.IsConditional && severe {
		result.Override = &domain.WhitelistOverride{
			Reason: dctx.WhitelistReason,
			Rationale: fmt.Sprintf(
				"tab open %.1f days with a single visit and %.0f%% engagement, severe enough to override the %s whitelist",
				meta.TabAgeDays, meta.AvgEngagementRate*100, dctx.WhitelistReason),
		}
	}

	factors := s.scoreFactors(meta, dctx)

	total := 0.0
	for _, f := range factors {
		total += f.Points
	}
	if total < 0 {
		total = 0
	}

	result.Score = total
	result.Factors = factors
	result.IsHoarder = total >= s.threshold

	switch {
	case total >= confidenceHighMin:
		result.Confidence = domain.ConfidenceHigh
	case total >= s.threshold:
		result.Confidence = domain.ConfidenceMedium
	case total >= confidenceLowMin:
		result.Confidence = domain.ConfidenceLow
	default:
		result.Confidence = domain.ConfidenceNotHoarder
	}

	switch result.Confidence {
	case domain.ConfidenceHigh:
		result.SuggestedAction = domain.ActionClose
	case domain.ConfidenceMedium:
		result.SuggestedAction = domain.ActionReview
	default:
		result.SuggestedAction = domain.ActionKeep
	}

	if result.IsHoarder {
		result.Reason = buildReason(factors)
	}

	return result
}

func (s *Scorer) isSeverePattern(meta *domain.TabMetadata) bool {
	return meta.TabAgeDays >= severeMinAgeDays &&
		meta.IsSingleVisit &&
		meta.AvgEngagementRate < severeMaxEngagement
}

func (s *Scorer) scoreFactors(meta *domain.TabMetadata, dctx *domain.DomainContext) []domain.ScoreFactor {
	factors := make([]domain.ScoreFactor, 0, 5)

	var agePoints float64
	switch {
	case meta.TabAgeDays >= 7:
		agePoints = 40
	case meta.TabAgeDays >= 3:
		agePoints = 25
	case meta.TabAgeDays >= 1:
		agePoints = 10
	}
	factors = append(factors, domain.ScoreFactor{
		Name:        "tab_age",
		Points:      agePoints,
		Explanation: fmt.Sprintf("tab has been open for %.1f days", meta.TabAgeDays),
	})

	var inactivityPoints float64
	switch {
	case meta.DaysSinceActivity >= 2:
		inactivityPoints = 30
	case meta.DaysSinceActivity >= 1:
		inactivityPoints = 15
	}
	factors = append(factors, domain.ScoreFactor{
		Name:        "inactivity",
		Points:      inactivityPoints,
		Explanation: fmt.Sprintf("no activity for %.1f days", meta.DaysSinceActivity),
	})

	var visitPoints float64
	visitExplanation := fmt.Sprintf("revisited %d times", meta.VisitCount)
	if meta.IsSingleVisit && meta.TabAgeDays >= 1 {
		visitPoints = 20
		visitExplanation = "opened once and never revisited"
	}
	factors = append(factors, domain.ScoreFactor{
		Name:        "visit_pattern",
		Points:      visitPoints,
		Explanation: visitExplanation,
	})

	var engagementPoints float64
	if meta.AvgEngagementRate < severeMaxEngagement && !meta.LikelyStillOpen {
		engagementPoints = 10
	}
	factors = append(factors, domain.ScoreFactor{
		Name:        "engagement",
		Points:      engagementPoints,
		Explanation: fmt.Sprintf("average engagement %.0f%%", meta.AvgEngagementRate*100),
	})

	var domainPoints float64
	domainExplanation := "neutral domain"
	switch {
	case dctx.ApplyStrictRules:
		domainPoints = 15
		domainExplanation = "domain is a known distraction source"
	case dctx.Type == domain.DomainTypeContentSite && meta.IsSingleVisit:
		domainPoints = 15
		domainExplanation = "content site visited once, likely saved for later"
	}
	factors = append(factors, domain.ScoreFactor{
		Name:        "domain_context",
		Points:      domainPoints,
		Explanation: domainExplanation,
	})

	return factors
}

func excluded(result *domain.HoarderTabResult) *domain.HoarderTabResult {
	result.Score = 0
	result.IsHoarder = false
	result.Confidence = domain.ConfidenceExcluded
	result.SuggestedAction = domain.ActionKeep
	return result
}

// buildReason joins the top three contributing factors so a flagged result
// reads as an auditable sentence.
func buildReason(factors []domain.ScoreFactor) string {
	ranked := make([]domain.ScoreFactor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})

	parts := make([]string, 0, 3)
	for _, f := range ranked {
		if len(parts) == 3 {
			break
		}
		if f.Points <= 0 {
			continue
		}
		parts = append(parts, f.Explanation)
	}
	return strings.Join(parts, reasonSeparator)
}
