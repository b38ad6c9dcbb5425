package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/out"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ClosureRepository implements out.TabClosureRepository
type ClosureRepository struct {
	db *sqlx.DB
}

// NewClosureRepository creates a new ClosureRepository
func NewClosureRepository(db *sqlx.DB) out.TabClosureRepository {
	return &ClosureRepository{db: db}
}

// UpsertClosure writes the client-reported closure for a visit. The last
// report wins when a client retries.
func (r *ClosureRepository) UpsertClosure(ctx context.Context, closure *domain.TabClosure) error {
	if closure.CreatedAt.IsZero() {
		closure.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO tab_closures (
			visit_id, total_open_sec, active_sec, scroll_depth, closed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (visit_id) DO UPDATE SET
			total_open_sec = EXCLUDED.total_open_sec,
			active_sec = EXCLUDED.active_sec,
			scroll_depth = EXCLUDED.scroll_depth,
			closed_at = EXCLUDED.closed_at`

	_, err := r.db.ExecContext(ctx, query,
		closure.VisitID, closure.TotalOpenSec, closure.ActiveSec,
		closure.ScrollDepth, closure.ClosedAt, closure.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert closure: %w", err)
	}

	return nil
}

func (r *ClosureRepository) GetClosures(ctx context.Context, visitIDs []int64) (map[int64]*domain.TabClosure, error) {
	if len(visitIDs) == 0 {
		return map[int64]*domain.TabClosure{}, nil
	}

	query := `
		SELECT visit_id, total_open_sec, active_sec, scroll_depth, closed_at, created_at
		FROM tab_closures
		WHERE visit_id = ANY($1)`

	var rows []closureRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(visitIDs)); err != nil {
		return nil, fmt.Errorf("get closures: %w", err)
	}

	closures := make(map[int64]*domain.TabClosure, len(rows))
	for _, row := range rows {
		closures[row.VisitID] = row.toDomain()
	}
	return closures, nil
}

type closureRow struct {
	VisitID      int64           `db:"visit_id"`
	TotalOpenSec float64         `db:"total_open_sec"`
	ActiveSec    float64         `db:"active_sec"`
	ScrollDepth  sql.NullFloat64 `db:"scroll_depth"`
	ClosedAt     sql.NullTime    `db:"closed_at"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (row closureRow) toDomain() *domain.TabClosure {
	closure := &domain.TabClosure{
		VisitID:      row.VisitID,
		TotalOpenSec: row.TotalOpenSec,
		ActiveSec:    row.ActiveSec,
		CreatedAt:    row.CreatedAt,
	}
	if row.ScrollDepth.Valid {
		closure.ScrollDepth = &row.ScrollDepth.Float64
	}
	if row.ClosedAt.Valid {
		closure.ClosedAt = &row.ClosedAt.Time
	}
	return closure
}
