package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visit is a single navigation event captured by the browser client.
// Visits are immutable after ingestion except for metadata enrichment;
// the core never deletes them.
type Visit struct {
	ID             int64          `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	Domain         string         `json:"domain"`
	VisitedAt      time.Time      `json:"visited_at"`
	DurationSec    *float64       `json:"duration_sec,omitempty"`
	ActiveSec      *float64       `json:"active_sec,omitempty"`
	EngagementRate *float64       `json:"engagement_rate,omitempty"` // 0.0-1.0, fraction of time engaged
	TabOpenedAt    *time.Time     `json:"tab_opened_at,omitempty"`   // distinct from VisitedAt for restored tabs
	Metadata       *VisitMetadata `json:"metadata,omitempty"`
	Category       string         `json:"category,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// VisitMetadata is the typed form of the client's free-form metadata map.
// Absent fields mean "not reported", never "false"/"empty".
type VisitMetadata struct {
	Pinned      *bool  `json:"pinned,omitempty"`
	PreviewText string `json:"preview_text,omitempty"`
	PreviewImg  string `json:"preview_img,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
}

// IsPinned reports whether the client flagged the tab as pinned.
func (v *Visit) IsPinned() bool {
	return v.Metadata != nil && v.Metadata.Pinned != nil && *v.Metadata.Pinned
}

// TabClosure is the client-reported closure record for a tab, keyed by the
// visit it closes. A non-nil ClosedAt is the only authoritative signal that
// a tab is closed; absence of a record means "unknown", never "open".
type TabClosure struct {
	VisitID      int64      `json:"visit_id"`
	TotalOpenSec float64    `json:"total_open_sec"`
	ActiveSec    float64    `json:"active_sec"`
	ScrollDepth  *float64   `json:"scroll_depth,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VisitFilter narrows visit queries. Zero values mean "no constraint".
type VisitFilter struct {
	Domain string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
