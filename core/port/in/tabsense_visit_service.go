package in

import (
	"context"
	"time"

	"tabsense_server/core/domain"

	"github.com/google/uuid"
)

// CreateVisitRequest is one navigation event reported by the client.
type CreateVisitRequest struct {
	URL            string                `json:"url"`
	Title          string                `json:"title"`
	Domain         string                `json:"domain"`
	VisitedAt      time.Time             `json:"visited_at"`
	DurationSec    *float64              `json:"duration_sec,omitempty"`
	ActiveSec      *float64              `json:"active_sec,omitempty"`
	EngagementRate *float64              `json:"engagement_rate,omitempty"`
	TabOpenedAt    *time.Time            `json:"tab_opened_at,omitempty"`
	Metadata       *domain.VisitMetadata `json:"metadata,omitempty"`
	Category       string                `json:"category,omitempty"`
}

// ReportClosureRequest is the client's closure record for a visit.
type ReportClosureRequest struct {
	TotalOpenSec float64    `json:"total_open_sec"`
	ActiveSec    float64    `json:"active_sec"`
	ScrollDepth  *float64   `json:"scroll_depth,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// VisitService is the inbound port for visit ingestion and lookup.
type VisitService interface {
	CreateVisit(ctx context.Context, userID uuid.UUID, req *CreateVisitRequest) (*domain.Visit, error)
	CreateVisits(ctx context.Context, userID uuid.UUID, reqs []*CreateVisitRequest) ([]*domain.Visit, error)
	GetVisit(ctx context.Context, userID uuid.UUID, id int64) (*domain.Visit, error)
	ListVisits(ctx context.Context, userID uuid.UUID, filter *domain.VisitFilter) ([]*domain.Visit, int, error)
	ReportClosure(ctx context.Context, userID uuid.UUID, visitID int64, req *ReportClosureRequest) error
}
