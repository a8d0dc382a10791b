// Package store defines persistence for canonical facility records and
// ingestion cursors. Implementations must make Upsert idempotent and
// must preserve store-owned fields (view counts) across upserts.
package store

import (
	"context"

	"github.com/sfdaycarelist/directory/pkg/daycares"
)

// Filter narrows List results. Zero-valued fields do not filter.
type Filter struct {
	Status              daycares.Status `json:"status,omitempty"`
	Neighborhood        string          `json:"neighborhood,omitempty"`
	AgeGroup            string          `json:"age_group,omitempty"`
	MaxMonthlyPrice     float64         `json:"max_monthly_price,omitempty"`
	AcceptingEnrollment *bool           `json:"accepting_enrollment,omitempty"`
	Verified            *bool           `json:"verified,omitempty"`
	Query               string          `json:"query,omitempty"`
	Limit               int             `json:"limit,omitempty"`
}

// Store persists canonical records. All methods are safe for concurrent
// use.
type Store interface {
	// Get returns the record with the given internal ID.
	Get(ctx context.Context, id string) (*daycares.Daycare, error)

	// GetBySlug returns the record with the given slug.
	GetBySlug(ctx context.Context, slug string) (*daycares.Daycare, error)

	// List returns records matching the filter, ordered by CreatedAt then
	// ID so results are stable across calls.
	List(ctx context.Context, f Filter) ([]*daycares.Daycare, error)

	// Upsert inserts the record or, when its slug already exists with the
	// same ID, replaces it. A slug owned by a different ID is a conflict.
	// Returns true when a new row was created. Writing the same record
	// twice leaves the store in the same state as writing it once.
	Upsert(ctx context.Context, d *daycares.Daycare) (created bool, err error)

	// HasSlug reports whether any record owns the slug. Satisfies
	// slug.Registry.
	HasSlug(ctx context.Context, slug string) (bool, error)

	// Cursor returns the persisted resume position for a source, or ""
	// when the source starts from the beginning.
	Cursor(ctx context.Context, source daycares.SourceID) (string, error)

	// SaveCursor persists the resume position for a source.
	SaveCursor(ctx context.Context, source daycares.SourceID, cursor string) error

	// Close releases the store's resources.
	Close() error
}
