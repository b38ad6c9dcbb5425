package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/out"
	"tabsense_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WhitelistRepository implements out.WhitelistRepository. The partial
// unique index on (user_id, domain) WHERE is_active enforces the
// one-active-entry invariant at the store.
type WhitelistRepository struct {
	db *sqlx.DB
}

// NewWhitelistRepository creates a new WhitelistRepository
func NewWhitelistRepository(db *sqlx.DB) out.WhitelistRepository {
	return &WhitelistRepository{db: db}
}

const whitelistColumns = `id, user_id, domain, reason, routine_score,
	       detected_at, last_verified_at, is_active`

func (r *WhitelistRepository) FindActive(ctx context.Context, userID uuid.UUID, domainName string) (*domain.WhitelistEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM whitelist_entries
		WHERE user_id = $1 AND domain = $2 AND is_active = true`, whitelistColumns)

	var row whitelistRow
	if err := r.db.GetContext(ctx, &row, query, userID, domainName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find whitelist entry: %w", err)
	}

	return row.toDomain(), nil
}

func (r *WhitelistRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.WhitelistEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM whitelist_entries
		WHERE user_id = $1 AND is_active = true
		ORDER BY domain ASC`, whitelistColumns)

	var rows []whitelistRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list whitelist entries: %w", err)
	}

	entries := make([]*domain.WhitelistEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toDomain()
	}
	return entries, nil
}

// AddOrUpdate upserts by (user, domain). A previously deactivated row is
// reactivated in place rather than duplicated.
func (r *WhitelistRepository) AddOrUpdate(ctx context.Context, entry *domain.WhitelistEntry) error {
	if entry.ID == 0 {
		entry.ID = snowflake.ID()
	}
	now := time.Now()
	if entry.DetectedAt.IsZero() {
		entry.DetectedAt = now
	}
	if entry.LastVerifiedAt.IsZero() {
		entry.LastVerifiedAt = now
	}
	entry.IsActive = true

	query := `
		INSERT INTO whitelist_entries (
			id, user_id, domain, reason, routine_score,
			detected_at, last_verified_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		ON CONFLICT (user_id, domain) DO UPDATE SET
			reason = EXCLUDED.reason,
			routine_score = EXCLUDED.routine_score,
			last_verified_at = EXCLUDED.last_verified_at,
			is_active = true`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Domain, entry.Reason,
		entry.RoutineScore, entry.DetectedAt, entry.LastVerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert whitelist entry: %w", err)
	}

	return nil
}

func (r *WhitelistRepository) Deactivate(ctx context.Context, userID uuid.UUID, domainName string) error {
	query := `
		UPDATE whitelist_entries
		SET is_active = false
		WHERE user_id = $1 AND domain = $2 AND is_active = true`

	_, err := r.db.ExecContext(ctx, query, userID, domainName)
	if err != nil {
		return fmt.Errorf("deactivate whitelist entry: %w", err)
	}

	return nil
}

type whitelistRow struct {
	ID             int64     `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	Domain         string    `db:"domain"`
	Reason         string    `db:"reason"`
	RoutineScore   float64   `db:"routine_score"`
	DetectedAt     time.Time `db:"detected_at"`
	LastVerifiedAt time.Time `db:"last_verified_at"`
	IsActive       bool      `db:"is_active"`
}

func (row whitelistRow) toDomain() *domain.WhitelistEntry {
	return &domain.WhitelistEntry{
		ID:             row.ID,
		UserID:         row.UserID,
		Domain:         row.Domain,
		Reason:         domain.WhitelistReason(row.Reason),
		RoutineScore:   row.RoutineScore,
		DetectedAt:     row.DetectedAt,
		LastVerifiedAt: row.LastVerifiedAt,
		IsActive:       row.IsActive,
	}
}
