package out

import (
	"context"

	"tabsense_server/core/domain"

	"github.com/google/uuid"
)

// WhitelistRepository is the outbound port for persisted whitelist entries.
// The invariant "at most one active entry per (user, domain)" is enforced
// here, not by callers.
type WhitelistRepository interface {
	// FindActive returns the active entry for the exact domain, or nil.
	FindActive(ctx context.Context, userID uuid.UUID, domainName string) (*domain.WhitelistEntry, error)

	// ListActive returns all active entries for the user.
	ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.WhitelistEntry, error)

	// AddOrUpdate upserts by (user, domain), reactivating a previously
	// deactivated row rather than inserting a duplicate.
	AddOrUpdate(ctx context.Context, entry *domain.WhitelistEntry) error

	// Deactivate soft-deletes the active entry without erasing history.
	Deactivate(ctx context.Context, userID uuid.UUID, domainName string) error
}
