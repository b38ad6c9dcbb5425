package domain

import "time"

// Confidence buckets a hoarder score for human consumption.
type Confidence string

const (
	ConfidenceExcluded   Confidence = "excluded"
	ConfidenceNotHoarder Confidence = "not_hoarder"
	ConfidenceLow        Confidence = "low"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceHigh       Confidence = "high"
)

// ScoreFactor is one named contribution to a hoarder score. Every score
// decomposes into these, so a result is auditable without re-deriving it.
type ScoreFactor struct {
	Name        string  `json:"name"`
	Points      float64 `json:"points"`
	Explanation string  `json:"explanation"`
}

// WhitelistOverride annotates a result whose conditional whitelist was
// overridden by a severe hoarder pattern.
type WhitelistOverride struct {
	Reason    WhitelistReason `json:"reason"`
	Rationale string          `json:"rationale"`
}

// SuggestedAction tags what the user should probably do with a flagged tab.
type SuggestedAction string

const (
	ActionClose  SuggestedAction = "close"
	ActionReview SuggestedAction = "review"
	ActionKeep   SuggestedAction = "keep"
)

// ContentType is the inferred kind of content behind a tab, used by the
// value ranker.
type ContentType string

const (
	ContentDocumentation ContentType = "documentation"
	ContentTutorial      ContentType = "tutorial"
	ContentArticle       ContentType = "article"
	ContentBlog          ContentType = "blog"
	ContentCodeReview    ContentType = "code_review"
	ContentIssueTracker  ContentType = "issue_tracker"
	ContentProjectPage   ContentType = "project_page"
	ContentSearchResults ContentType = "search_results"
	ContentSocialMedia   ContentType = "social_media"
	ContentNewsFeed      ContentType = "news_feed"
	ContentUnknown       ContentType = "unknown"
)

// ValueBreakdown explains a value rank.
type ValueBreakdown struct {
	HoarderScore  float64     `json:"hoarder_score"`
	AgeWeight     float64     `json:"age_weight"`
	ContentWeight float64     `json:"content_weight"`
	ContentType   ContentType `json:"content_type"`
}

// HoarderTabResult is the externally consumable output of hoarder detection
// for one logical tab.
type HoarderTabResult struct {
	VisitID        int64   `json:"visit_id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Domain         string  `json:"domain"`

	VisitedAt      time.Time `json:"visited_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	AgeDays        float64   `json:"age_days"`
	InactivityDays float64   `json:"inactivity_days"`

	VisitCount       int     `json:"visit_count"`
	TotalDurationSec float64 `json:"total_duration_sec"`
	EngagementRate   float64 `json:"engagement_rate"`

	Score      float64       `json:"score"`
	IsHoarder  bool          `json:"is_hoarder"`
	Confidence Confidence    `json:"confidence"`
	Reason     string        `json:"reason,omitempty"`
	Factors    []ScoreFactor `json:"factors"`

	Override        *WhitelistOverride `json:"whitelist_override,omitempty"`
	ValueRank       *float64           `json:"value_rank,omitempty"`
	ValueBreakdown  *ValueBreakdown    `json:"value_breakdown,omitempty"`
	SuggestedAction SuggestedAction    `json:"suggested_action"`
}

// RoutineResult is the output of routine detection for one (user, domain).
type RoutineResult struct {
	Domain     string          `json:"domain"`
	IsRoutine  bool            `json:"is_routine"`
	Type       WhitelistReason `json:"routine_type,omitempty"`
	Score      float64         `json:"score"`
	Factors    []ScoreFactor   `json:"factors"`
	VisitCount int             `json:"visit_count"`
	DaysActive int             `json:"days_active"`
}

// ResearchSessionCandidate is one detected burst of temporally-clustered
// visits treated as a coherent browsing task.
type ResearchSessionCandidate struct {
	Name          string    `json:"name"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	TabCount      int       `json:"tab_count"`
	PrimaryDomain string    `json:"primary_domain"`
	Domains       []string  `json:"domains"`
	DurationSec   float64   `json:"duration_sec"`
	AvgEngagement float64   `json:"avg_engagement"`
	VisitIDs      []int64   `json:"visit_ids"`
	Status        string    `json:"status"` // always "detected"
}

// BehaviorType classifies how often a resource is reopened.
type BehaviorType string

const (
	BehaviorCompulsiveChecking BehaviorType = "compulsive_checking"
	BehaviorFrequentMonitoring BehaviorType = "frequent_monitoring"
	BehaviorRegularReference   BehaviorType = "regular_reference"
	BehaviorPeriodicRevisit    BehaviorType = "periodic_revisit"
)

// Severity ranks behavior types for comparison reports.
func (b BehaviorType) Severity() int {
	switch b {
	case BehaviorCompulsiveChecking:
		return 4
	case BehaviorFrequentMonitoring:
		return 3
	case BehaviorRegularReference:
		return 2
	default:
		return 1
	}
}

// EngagementType classifies per-visit engagement depth.
type EngagementType string

const (
	EngagementQuickGlance EngagementType = "quick_glance"
	EngagementBriefCheck  EngagementType = "brief_check"
	EngagementScan        EngagementType = "scan"
	EngagementShallowWork EngagementType = "shallow_work"
)

// SerialOpenerResult classifies one repeatedly-opened resource.
type SerialOpenerResult struct {
	URL                 string         `json:"url"`
	Title               string         `json:"title"`
	Domain              string         `json:"domain"`
	VisitCount          int            `json:"visit_count"`
	AvgHoursBetween     float64        `json:"avg_hours_between"`
	AvgSecondsPerVisit  float64        `json:"avg_seconds_per_visit"`
	TotalEngagementSec  float64        `json:"total_engagement_sec"`
	Behavior            BehaviorType   `json:"behavior_type"`
	Engagement          EngagementType `json:"engagement_type"`
	FirstVisitedAt      time.Time      `json:"first_visited_at"`
	LastVisitedAt       time.Time      `json:"last_visited_at"`
}

// ComparisonStatus tags a resource's presence across two periods.
type ComparisonStatus string

const (
	ComparisonContinued ComparisonStatus = "continued"
	ComparisonNew       ComparisonStatus = "new"
	ComparisonResolved  ComparisonStatus = "resolved"
)

// Trend labels a period-over-period change.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ComparisonEntry diffs one resource between two classified periods.
type ComparisonEntry struct {
	URL                string           `json:"url"`
	Status             ComparisonStatus `json:"status"`
	VisitChangePct     float64          `json:"visit_change_pct"`
	EngagementChangePct float64         `json:"engagement_change_pct"`
	Trend              Trend            `json:"trend"`
	Current            *SerialOpenerResult `json:"current,omitempty"`
	Previous           *SerialOpenerResult `json:"previous,omitempty"`
}

// TierTransition records a behavior-tier change for one resource.
type TierTransition struct {
	URL      string       `json:"url"`
	From     BehaviorType `json:"from"`
	To       BehaviorType `json:"to"`
	Delta    int          `json:"delta"` // positive = escalation
}

// ComparisonReport is the full period-over-period diff.
type ComparisonReport struct {
	Entries     []*ComparisonEntry `json:"entries"`
	Transitions []*TierTransition  `json:"transitions"`
}
