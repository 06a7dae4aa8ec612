package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/linkly/internal/shortlink"
)

// Schema is the registry DDL. The unique index on short_code is the
// authority for the uniqueness invariant; application-level checks are only
// optimizations around it.
const Schema = `
	CREATE TABLE IF NOT EXISTS short_links (
		id            UUID PRIMARY KEY,
		short_code    TEXT NOT NULL UNIQUE,
		original_url  TEXT NOT NULL,
		custom_alias  TEXT,
		title         TEXT,
		description   TEXT,
		keywords      TEXT[] NOT NULL DEFAULT '{}',
		preview_image TEXT,
		domain        TEXT,
		owner_id      TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at    TIMESTAMPTZ,
		clicks        BIGINT NOT NULL DEFAULT 0,
		last_clicked  TIMESTAMPTZ,
		click_history JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_short_links_owner ON short_links (owner_id);
	CREATE INDEX IF NOT EXISTS idx_short_links_expiry ON short_links (expires_at) WHERE is_active AND expires_at IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_short_links_clicks ON short_links (clicks DESC);
`

const linkColumns = `id, short_code, original_url, custom_alias, title, description, keywords,
	preview_image, domain, owner_id, is_active, expires_at, clicks, last_clicked,
	click_history, created_at, updated_at`

// PostgresStore is the PostgreSQL implementation of shortlink.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed registry.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Compile-time check.
var _ shortlink.Repository = (*PostgresStore)(nil)

// EnsureSchema creates the registry tables and indexes if missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, Schema)

	return err
}

func (p *PostgresStore) Save(ctx context.Context, link *shortlink.ShortLink) error {
	query := `
		INSERT INTO short_links (
			id, short_code, original_url, custom_alias, title, description, keywords,
			preview_image, domain, owner_id, is_active, expires_at, clicks, last_clicked,
			click_history, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	history, err := json.Marshal(link.ClickHistory)
	if err != nil {
		return err
	}

	// The keywords column is NOT NULL; a nil slice must not encode as NULL.
	keywords := link.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	_, err = p.pool.Exec(ctx, query,
		link.ID,
		link.ShortCode,
		link.OriginalURL,
		nullable(link.CustomAlias),
		nullable(link.Title),
		nullable(link.Description),
		keywords,
		nullable(link.PreviewImage),
		nullable(link.Domain),
		link.OwnerID,
		link.IsActive,
		link.ExpiresAt,
		link.Clicks,
		link.LastClicked,
		history,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shortlink.ErrCodeExists
		}

		return err
	}

	return nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code string) (*shortlink.ShortLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM short_links WHERE short_code = $1`, linkColumns)

	return scanLink(p.pool.QueryRow(ctx, query, code))
}

func (p *PostgresStore) GetOwned(ctx context.Context, id, ownerID string) (*shortlink.ShortLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM short_links WHERE id = $1 AND owner_id = $2`, linkColumns)

	return scanLink(p.pool.QueryRow(ctx, query, id, ownerID))
}

// ResolveAndRecord is a single atomic UPDATE: the resolvability filter, the
// counter increment, and the bounded history append all happen in one
// statement, so concurrent resolutions of the same code never lose
// increments. At the cap the oldest history entry is evicted; the counter is
// unaffected by eviction.
func (p *PostgresStore) ResolveAndRecord(
	ctx context.Context, code string, click shortlink.Click, now time.Time,
) (*shortlink.Resolution, error) {
	query := `
		UPDATE short_links
		SET clicks = clicks + 1,
			last_clicked = $2,
			updated_at = $2,
			click_history = CASE
				WHEN jsonb_array_length(click_history) >= $4
					THEN (click_history - 0) || $3::jsonb
				ELSE click_history || $3::jsonb
			END
		WHERE short_code = $1
			AND is_active
			AND (expires_at IS NULL OR expires_at > $2)
		RETURNING id, owner_id, original_url, clicks
	`

	record, err := json.Marshal(click)
	if err != nil {
		return nil, err
	}

	res := &shortlink.Resolution{ShortCode: code}

	err = p.pool.QueryRow(ctx, query, code, now, record, shortlink.HistoryCap).Scan(
		&res.LinkID,
		&res.OwnerID,
		&res.OriginalURL,
		&res.Clicks,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, err
	}

	return res, nil
}

// sortColumns whitelists the sortable fields for owner listings.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"clicks":      "clicks",
	"lastClicked": "last_clicked",
	"title":       "title",
}

func (p *PostgresStore) ListByOwner(
	ctx context.Context, ownerID string, page shortlink.Page,
) ([]*shortlink.ShortLink, *shortlink.Pagination, error) {
	if page.Page < 1 {
		page.Page = 1
	}

	if page.Limit < 1 {
		page.Limit = 10
	}

	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if strings.EqualFold(page.SortOrder, "asc") {
		direction = "ASC"
	}

	where := "owner_id = $1"
	countArgs := []any{ownerID}

	if page.Filter != "" {
		where += ` AND (original_url ILIKE $2 OR title ILIKE $2 OR description ILIKE $2 OR short_code ILIKE $2)`
		countArgs = append(countArgs, "%"+page.Filter+"%")
	}

	query := fmt.Sprintf(
		`SELECT %s FROM short_links WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		linkColumns, where, column, direction, len(countArgs)+1, len(countArgs)+2,
	)
	args := append(append([]any{}, countArgs...), page.Limit, (page.Page-1)*page.Limit)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var links []*shortlink.ShortLink

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, nil, err
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var total int64
	if err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM short_links WHERE %s`, where), countArgs...,
	).Scan(&total); err != nil {
		return nil, nil, err
	}

	return links, paginate(page, total), nil
}

func (p *PostgresStore) Update(
	ctx context.Context, id, ownerID string, fields shortlink.UpdateFields, now time.Time,
) (*shortlink.ShortLink, error) {
	sets := []string{"updated_at = $3"}
	args := []any{id, ownerID, now}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Title != nil {
		add("title", nullable(*fields.Title))
	}

	if fields.Description != nil {
		add("description", nullable(*fields.Description))
	}

	if fields.Keywords != nil {
		add("keywords", *fields.Keywords)
	}

	if fields.PreviewImage != nil {
		add("preview_image", nullable(*fields.PreviewImage))
	}

	if fields.CustomAlias != nil {
		add("short_code", *fields.CustomAlias)
		add("custom_alias", *fields.CustomAlias)
	}

	if fields.ClearExpiry {
		sets = append(sets, "expires_at = NULL")
	} else if fields.ExpiresAt != nil {
		add("expires_at", *fields.ExpiresAt)
	}

	if fields.IsActive != nil {
		add("is_active", *fields.IsActive)
	}

	query := fmt.Sprintf(
		`UPDATE short_links SET %s WHERE id = $1 AND owner_id = $2 RETURNING %s`,
		strings.Join(sets, ", "), linkColumns,
	)

	link, err := scanLink(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shortlink.ErrAliasTaken
		}

		return nil, err
	}

	return link, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM short_links WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortlink.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE short_links
		SET is_active = FALSE, updated_at = $1
		WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresStore) TopLinks(ctx context.Context, limit int) ([]*shortlink.ShortLink, error) {
	if limit < 1 {
		limit = 10
	}

	query := fmt.Sprintf(
		`SELECT %s FROM short_links WHERE is_active ORDER BY clicks DESC LIMIT $1`,
		linkColumns,
	)

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*shortlink.ShortLink

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) OwnerStats(
	ctx context.Context, ownerID string, now time.Time,
) (*shortlink.OwnerStats, error) {
	stats := &shortlink.OwnerStats{ClicksByDay: make(map[string]int64)}

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COALESCE(SUM(clicks), 0),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM short_links
		WHERE owner_id = $1
	`, ownerID, now.Add(-shortlink.RecentWindow)).Scan(
		&stats.TotalLinks,
		&stats.ActiveLinks,
		&stats.TotalClicks,
		&stats.RecentLinks,
	)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT to_char((entry->>'timestamp')::timestamptz AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COUNT(*)
		FROM short_links, jsonb_array_elements(click_history) AS entry
		WHERE owner_id = $1 AND (entry->>'timestamp')::timestamptz >= $2
		GROUP BY day
	`, ownerID, now.Add(-shortlink.ActivityWindow))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day   string
			count int64
		)

		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}

		stats.ClicksByDay[day] = count
	}

	return stats, rows.Err()
}

func scanLink(row pgx.Row) (*shortlink.ShortLink, error) {
	var (
		link         shortlink.ShortLink
		customAlias  *string
		title        *string
		description  *string
		previewImage *string
		domain       *string
		history      []byte
	)

	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&customAlias,
		&title,
		&description,
		&link.Keywords,
		&previewImage,
		&domain,
		&link.OwnerID,
		&link.IsActive,
		&link.ExpiresAt,
		&link.Clicks,
		&link.LastClicked,
		&history,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, err
	}

	link.CustomAlias = deref(customAlias)
	link.Title = deref(title)
	link.Description = deref(description)
	link.PreviewImage = deref(previewImage)
	link.Domain = deref(domain)

	if err := json.Unmarshal(history, &link.ClickHistory); err != nil {
		return nil, err
	}

	return &link, nil
}

func paginate(page shortlink.Page, total int64) *shortlink.Pagination {
	pages := total / int64(page.Limit)
	if total%int64(page.Limit) != 0 {
		pages++
	}

	return &shortlink.Pagination{
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Pages: pages,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
