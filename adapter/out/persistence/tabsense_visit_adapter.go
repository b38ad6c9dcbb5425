package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/out"
	"tabsense_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const visitColumns = `id, user_id, url, title, domain, visited_at,
	       duration_sec, active_sec, engagement_rate, tab_opened_at,
	       metadata, category, created_at`

// VisitRepository implements out.VisitRepository
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository creates a new VisitRepository
func NewVisitRepository(db *sqlx.DB) out.VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) CreateVisit(ctx context.Context, visit *domain.Visit) error {
	if visit.ID == 0 {
		visit.ID = snowflake.ID()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now()
	}

	var metadata []byte
	if visit.Metadata != nil {
		metadata, _ = json.Marshal(visit.Metadata)
	}

	query := `
		INSERT INTO visits (
			id, user_id, url, title, domain, visited_at,
			duration_sec, active_sec, engagement_rate, tab_opened_at,
			metadata, category, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		visit.ID, visit.UserID, visit.URL, visit.Title, visit.Domain,
		visit.VisitedAt, visit.DurationSec, visit.ActiveSec,
		visit.EngagementRate, visit.TabOpenedAt, metadata,
		nullIfEmpty(visit.Category), visit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create visit: %w", err)
	}

	return nil
}

func (r *VisitRepository) CreateVisits(ctx context.Context, visits []*domain.Visit) error {
	if len(visits) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO visits (
			id, user_id, url, title, domain, visited_at,
			duration_sec, active_sec, engagement_rate, tab_opened_at,
			metadata, category, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	now := time.Now()
	for _, visit := range visits {
		if visit.ID == 0 {
			visit.ID = snowflake.ID()
		}
		if visit.CreatedAt.IsZero() {
			visit.CreatedAt = now
		}

		var metadata []byte
		if visit.Metadata != nil {
			metadata, _ = json.Marshal(visit.Metadata)
		}

		if _, err := tx.ExecContext(ctx, query,
			visit.ID, visit.UserID, visit.URL, visit.Title, visit.Domain,
			visit.VisitedAt, visit.DurationSec, visit.ActiveSec,
			visit.EngagementRate, visit.TabOpenedAt, metadata,
			nullIfEmpty(visit.Category), visit.CreatedAt,
		); err != nil {
			return fmt.Errorf("create visit %d: %w", visit.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit visits: %w", err)
	}
	return nil
}

func (r *VisitRepository) GetVisit(ctx context.Context, id int64) (*domain.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE id = $1`, visitColumns)

	var row visitRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get visit: %w", err)
	}

	return row.toDomain(), nil
}

func (r *VisitRepository) ListVisits(ctx context.Context, userID uuid.UUID, filter *domain.VisitFilter) ([]*domain.Visit, int, error) {
	if filter == nil {
		filter = &domain.VisitFilter{}
	}

	var conditions []string
	var args []interface{}
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, userID)
	argIdx++

	if filter.Domain != "" {
		conditions = append(conditions, fmt.Sprintf("domain = $%d", argIdx))
		args = append(args, filter.Domain)
		argIdx++
	}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("visited_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("visited_at < $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM visits WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE %s
		ORDER BY visited_at ASC
		LIMIT $%d OFFSET $%d`,
		visitColumns, whereClause, argIdx, argIdx+1)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit, filter.Offset)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}

	return toDomainVisits(rows), total, nil
}

func (r *VisitRepository) ListVisitsByURL(ctx context.Context, userID uuid.UUID, url string) ([]*domain.Visit, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE user_id = $1 AND url = $2
		ORDER BY visited_at ASC`, visitColumns)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, url); err != nil {
		return nil, fmt.Errorf("list visits by url: %w", err)
	}

	return toDomainVisits(rows), nil
}

func (r *VisitRepository) ListVisitsByDomain(ctx context.Context, userID uuid.UUID, domainName string, since time.Time) ([]*domain.Visit, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE user_id = $1 AND domain = $2 AND visited_at >= $3
		ORDER BY visited_at ASC`, visitColumns)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, domainName, since); err != nil {
		return nil, fmt.Errorf("list visits by domain: %w", err)
	}

	return toDomainVisits(rows), nil
}

func (r *VisitRepository) GroupVisitsByURL(ctx context.Context, userID uuid.UUID, since time.Time) (map[string][]*domain.Visit, []string, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE user_id = $1 AND visited_at >= $2
		ORDER BY visited_at ASC`, visitColumns)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, nil, fmt.Errorf("group visits by url: %w", err)
	}

	groups := make(map[string][]*domain.Visit, len(rows))
	ordered := make([]string, 0, len(rows))
	for _, row := range rows {
		visit := row.toDomain()
		if _, seen := groups[visit.URL]; !seen {
			ordered = append(ordered, visit.URL)
		}
		groups[visit.URL] = append(groups[visit.URL], visit)
	}

	return groups, ordered, nil
}

func (r *VisitRepository) ListActiveDomains(ctx context.Context, userID uuid.UUID, since time.Time) ([]string, error) {
	query := `
		SELECT domain
		FROM visits
		WHERE user_id = $1 AND visited_at >= $2
		GROUP BY domain
		ORDER BY COUNT(*) DESC, domain ASC`

	var domains []string
	if err := r.db.SelectContext(ctx, &domains, query, userID, since); err != nil {
		return nil, fmt.Errorf("list active domains: %w", err)
	}
	return domains, nil
}

func (r *VisitRepository) ListActiveUsers(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM visits
		WHERE visited_at >= $1`

	var users []uuid.UUID
	if err := r.db.SelectContext(ctx, &users, query, since); err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return users, nil
}

// =============================================================================
// Row mapping
// =============================================================================

type visitRow struct {
	ID             int64           `db:"id"`
	UserID         uuid.UUID       `db:"user_id"`
	URL            string          `db:"url"`
	Title          string          `db:"title"`
	Domain         string          `db:"domain"`
	VisitedAt      time.Time       `db:"visited_at"`
	DurationSec    sql.NullFloat64 `db:"duration_sec"`
	ActiveSec      sql.NullFloat64 `db:"active_sec"`
	EngagementRate sql.NullFloat64 `db:"engagement_rate"`
	TabOpenedAt    sql.NullTime    `db:"tab_opened_at"`
	Metadata       []byte          `db:"metadata"`
	Category       sql.NullString  `db:"category"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (row visitRow) toDomain() *domain.Visit {
	visit := &domain.Visit{
		ID:        row.ID,
		UserID:    row.UserID,
		URL:       row.URL,
		Title:     row.Title,
		Domain:    row.Domain,
		VisitedAt: row.VisitedAt,
		Category:  row.Category.String,
		CreatedAt: row.CreatedAt,
	}
	if row.DurationSec.Valid {
		visit.DurationSec = &row.DurationSec.Float64
	}
	if row.ActiveSec.Valid {
		visit.ActiveSec = &row.ActiveSec.Float64
	}
	if row.EngagementRate.Valid {
		visit.EngagementRate = &row.EngagementRate.Float64
	}
	if row.TabOpenedAt.Valid {
		visit.TabOpenedAt = &row.TabOpenedAt.Time
	}
	if len(row.Metadata) > 0 {
		var meta domain.VisitMetadata
		if err := json.Unmarshal(row.Metadata, &meta); err == nil {
			visit.Metadata = &meta
		}
	}
	return visit
}

func toDomainVisits(rows []visitRow) []*domain.Visit {
	visits := make([]*domain.Visit, len(rows))
	for i, row := range rows {
		visits[i] = row.toDomain()
	}
	return visits
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
