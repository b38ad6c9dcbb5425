package in

import (
	"context"

	"tabsense_server/core/domain"

	"github.com/google/uuid"
)

// WhitelistManager is the inbound port for whitelist reads and mutations.
type WhitelistManager interface {
	Find(ctx context.Context, userID uuid.UUID, domainName string) (*domain.WhitelistEntry, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.WhitelistEntry, error)
	AddOrUpdate(ctx context.Context, entry *domain.WhitelistEntry) error
	Deactivate(ctx context.Context, userID uuid.UUID, domainName string) error
}
