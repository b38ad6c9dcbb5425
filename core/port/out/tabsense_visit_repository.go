// Package out defines outbound ports (driven ports) for the application.
// These interfaces represent the collaborator data store the core reads
// snapshots from; store failures propagate uncaught since the core has no
// compensating action to take.
package out

import (
	"context"
	"time"

	"tabsense_server/core/domain"

	"github.com/google/uuid"
)

// VisitRepository is the outbound port for visit history.
type VisitRepository interface {
	// Ingestion
	CreateVisit(ctx context.Context, visit *domain.Visit) error
	CreateVisits(ctx context.Context, visits []*domain.Visit) error
	GetVisit(ctx context.Context, id int64) (*domain.Visit, error)

	// Query operations, all ordered by visited_at ascending
	ListVisits(ctx context.Context, userID uuid.UUID, filter *domain.VisitFilter) ([]*domain.Visit, int, error)
	ListVisitsByURL(ctx context.Context, userID uuid.UUID, url string) ([]*domain.Visit, error)
	ListVisitsByDomain(ctx context.Context, userID uuid.UUID, domainName string, since time.Time) ([]*domain.Visit, error)

	// GroupVisitsByURL returns all visits since the cutoff, grouped by URL.
	// Group order follows each URL's first visit; visits within a group are
	// ordered by visited_at ascending.
	GroupVisitsByURL(ctx context.Context, userID uuid.UUID, since time.Time) (map[string][]*domain.Visit, []string, error)

	// ListActiveDomains returns distinct domains the user visited since the
	// cutoff, ordered by visit count descending.
	ListActiveDomains(ctx context.Context, userID uuid.UUID, since time.Time) ([]string, error)

	// ListActiveUsers returns users with at least one visit since the
	// cutoff. Used by the routine refresh scheduler.
	ListActiveUsers(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// TabClosureRepository is the outbound port for client-reported closures.
type TabClosureRepository interface {
	UpsertClosure(ctx context.Context, closure *domain.TabClosure) error

	// GetClosures returns closure records keyed by visit ID. Missing visits
	// are simply absent from the map.
	GetClosures(ctx context.Context, visitIDs []int64) (map[int64]*domain.TabClosure, error)
}
