package domain

import "time"

// LifecycleStatus describes what is known about a tab's open/closed state.
type LifecycleStatus string

const (
	// LifecycleClosed means a closure record with a close timestamp exists.
	LifecycleClosed LifecycleStatus = "closed"
	// LifecycleUnknown means no closure record exists. Absence of data is
	// never interpreted as "open".
	LifecycleUnknown LifecycleStatus = "unknown"
)

// TabMetadata is the computed lifecycle view of one logical tab (all visits
// sharing a URL). It is derived fresh on every detection run and never
// persisted.
type TabMetadata struct {
	URL                  string          `json:"url"`
	Title                string          `json:"title"` // most recent visit's title
	Domain               string          `json:"domain"`
	VisitCount           int             `json:"visit_count"`
	FirstVisitID         int64           `json:"first_visit_id"`
	FirstVisitedAt       time.Time       `json:"first_visited_at"`
	LastVisitedAt        time.Time       `json:"last_visited_at"`
	TabAgeDays           float64         `json:"tab_age_days"`
	DaysSinceActivity    float64         `json:"days_since_activity"`
	Status               LifecycleStatus `json:"status"`
	TotalDurationSec     float64         `json:"total_duration_sec"`
	TotalActiveSec       float64         `json:"total_active_sec"`
	AvgEngagementRate    float64         `json:"avg_engagement_rate"`
	LikelyStillOpen      bool            `json:"likely_still_open"`
	IsSingleVisit        bool            `json:"is_single_visit"`
	IsPinned             bool            `json:"is_pinned"`
}
