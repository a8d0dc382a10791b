// Package postgres implements the Store on PostgreSQL using pgx. The
// canonical record is persisted as a JSONB document alongside a few
// indexed columns; slug uniqueness is enforced by the database so
// concurrent writers cannot race past the allocator.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/store"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS daycares (
	id           TEXT PRIMARY KEY,
	slug         TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	neighborhood TEXT NOT NULL DEFAULT '',
	verified     BOOLEAN NOT NULL DEFAULT FALSE,
	status       TEXT NOT NULL DEFAULT 'active',
	doc          JSONB NOT NULL,
	views        BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS daycares_neighborhood_idx ON daycares (neighborhood);
CREATE INDEX IF NOT EXISTS daycares_status_idx ON daycares (status);

CREATE TABLE IF NOT EXISTS ingest_cursors (
	source     TEXT PRIMARY KEY,
	cursor     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Get returns the record with the given internal ID.
func (s *Store) Get(ctx context.Context, id string) (*daycares.Daycare, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetBySlug returns the record with the given slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*daycares.Daycare, error) {
	return s.getOne(ctx, "slug = $1", slug)
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*daycares.Daycare, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT doc, views FROM daycares WHERE "+where, arg)
	return scanRecord(row)
}

// List returns records matching the filter, ordered by creation time
// then ID.
func (s *Store) List(ctx context.Context, f store.Filter) ([]*daycares.Daycare, error) {
	q := strings.Builder{}
	q.WriteString("SELECT doc, views FROM daycares")

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.Neighborhood != "" {
		where = append(where, "LOWER(neighborhood) = LOWER("+arg(f.Neighborhood)+")")
	}
	if f.Verified != nil {
		where = append(where, "verified = "+arg(*f.Verified))
	}
	if f.AgeGroup != "" {
		where = append(where, "doc->'program'->'age_groups' ? "+arg(strings.ToLower(f.AgeGroup)))
	}
	if f.MaxMonthlyPrice > 0 {
		where = append(where, `(doc->'pricing'->'monthly' IS NULL OR EXISTS (
			SELECT 1 FROM jsonb_each_text(doc->'pricing'->'monthly') AS rate(band, amount)
			WHERE amount::numeric <= `+arg(f.MaxMonthlyPrice)+"))")
	}
	if f.AcceptingEnrollment != nil {
		where = append(where, "(doc->'availability'->>'accepting_enrollment')::boolean = "+arg(*f.AcceptingEnrollment))
	}
	if f.Query != "" {
		where = append(where, "name ILIKE "+arg("%"+f.Query+"%"))
	}
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY created_at, id")
	if f.Limit > 0 {
		q.WriteString(" LIMIT " + arg(f.Limit))
	}

	rows, err := s.pool.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing daycares: %w", err)
	}
	defer rows.Close()

	var out []*daycares.Daycare
	for rows.Next() {
		d, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Upsert inserts the record or replaces the row already holding its
// slug. The conditional update only fires when the existing row has the
// same internal ID; zero rows affected means the slug belongs to
// someone else. The views column is deliberately absent from the update
// list so serving-layer counts survive every pipeline pass.
func (s *Store) Upsert(ctx context.Context, d *daycares.Daycare) (bool, error) {
	if d.Slug == "" {
		return false, errors.NewValidationError("slug", d.Slug, "record has no slug")
	}
	if d.ID == "" {
		return false, errors.NewValidationError("id", d.ID, "record has no id")
	}
	doc, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("encoding record %s: %w", d.Slug, err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO daycares (id, slug, name, neighborhood, verified, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE SET
			name         = EXCLUDED.name,
			neighborhood = EXCLUDED.neighborhood,
			verified     = EXCLUDED.verified,
			status       = EXCLUDED.status,
			doc          = EXCLUDED.doc,
			updated_at   = EXCLUDED.updated_at
		WHERE daycares.id = EXCLUDED.id
		RETURNING (xmax = 0) AS inserted`,
		d.ID, d.Slug, d.Name, d.Location.Neighborhood, d.Verified, string(d.Status),
		doc, d.CreatedAt, d.UpdatedAt)

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		if err == pgx.ErrNoRows {
			// The conflict target matched but the guard did not: the slug is
			// owned by a different record.
			owner, lookupErr := s.slugOwner(ctx, d.Slug)
			if lookupErr != nil {
				owner = "unknown"
			}
			return false, &errors.ConflictError{Slug: d.Slug, OwnerID: owner}
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, &errors.ConflictError{Slug: d.Slug}
		}
		return false, fmt.Errorf("upserting %s: %w", d.Slug, err)
	}
	return inserted, nil
}

func (s *Store) slugOwner(ctx context.Context, slug string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, "SELECT id FROM daycares WHERE slug = $1", slug).Scan(&id)
	return id, err
}

// HasSlug reports whether any record owns the slug.
func (s *Store) HasSlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM daycares WHERE slug = $1)", slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking slug %s: %w", slug, err)
	}
	return exists, nil
}

// Cursor returns the persisted resume position for a source.
func (s *Store) Cursor(ctx context.Context, source daycares.SourceID) (string, error) {
	var cursor string
	err := s.pool.QueryRow(ctx,
		"SELECT cursor FROM ingest_cursors WHERE source = $1", source.String()).Scan(&cursor)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading cursor for %s: %w", source, err)
	}
	return cursor, nil
}

// SaveCursor persists the resume position for a source.
func (s *Store) SaveCursor(ctx context.Context, source daycares.SourceID, cursor string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_cursors (source, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (source) DO UPDATE SET cursor = EXCLUDED.cursor, updated_at = now()`,
		source.String(), cursor)
	if err != nil {
		return fmt.Errorf("saving cursor for %s: %w", source, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*daycares.Daycare, error) {
	var (
		doc   []byte
		views int64
	)
	if err := row.Scan(&doc, &views); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("scanning daycare row: %w", err)
	}
	var d daycares.Daycare
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decoding daycare document: %w", err)
	}
	d.Views = views
	return &d, nil
}
