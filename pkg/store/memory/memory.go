// Package memory provides an in-memory Store used by tests and dry
// runs. Records are deep-copied on the way in and out so callers can
// never mutate stored state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	bySlug  map[string]*daycares.Daycare
	byID    map[string]string // id -> slug
	cursors map[daycares.SourceID]string
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		bySlug:  map[string]*daycares.Daycare{},
		byID:    map[string]string{},
		cursors: map[daycares.SourceID]string{},
	}
}

// Get returns the record with the given internal ID.
func (s *Store) Get(_ context.Context, id string) (*daycares.Daycare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug, ok := s.byID[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return s.bySlug[slug].Clone(), nil
}

// GetBySlug returns the record with the given slug.
func (s *Store) GetBySlug(_ context.Context, slug string) (*daycares.Daycare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.bySlug[slug]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return d.Clone(), nil
}

// List returns records matching the filter in stable order.
func (s *Store) List(_ context.Context, f store.Filter) ([]*daycares.Daycare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*daycares.Daycare, 0, len(s.bySlug))
	for _, d := range s.bySlug {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Neighborhood != "" && !strings.EqualFold(d.Location.Neighborhood, f.Neighborhood) {
			continue
		}
		if f.Verified != nil && d.Verified != *f.Verified {
			continue
		}
		if f.AgeGroup != "" && !containsFold(d.Program.AgeGroups, f.AgeGroup) {
			continue
		}
		if f.MaxMonthlyPrice > 0 && minMonthly(d.Pricing.Monthly) > f.MaxMonthlyPrice {
			continue
		}
		if f.AcceptingEnrollment != nil {
			if d.Availability.AcceptingEnrollment == nil || *d.Availability.AcceptingEnrollment != *f.AcceptingEnrollment {
				continue
			}
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Upsert inserts or replaces a record, keyed by slug. A slug owned by a
// different ID is a conflict. The store-owned view count survives the
// replace.
func (s *Store) Upsert(_ context.Context, d *daycares.Daycare) (bool, error) {
	if d.Slug == "" {
		return false, errors.NewValidationError("slug", d.Slug, "record has no slug")
	}
	if d.ID == "" {
		return false, errors.NewValidationError("id", d.ID, "record has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bySlug[d.Slug]
	if ok && existing.ID != d.ID {
		return false, &errors.ConflictError{Slug: d.Slug, OwnerID: existing.ID}
	}

	c := d.Clone()
	if ok {
		c.Views = existing.Views
	}
	s.bySlug[d.Slug] = c
	s.byID[d.ID] = d.Slug
	return !ok, nil
}

// HasSlug reports whether any record owns the slug.
func (s *Store) HasSlug(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySlug[slug]
	return ok, nil
}

// Cursor returns the persisted resume position for a source.
func (s *Store) Cursor(_ context.Context, source daycares.SourceID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[source], nil
}

// SaveCursor persists the resume position for a source.
func (s *Store) SaveCursor(_ context.Context, source daycares.SourceID, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[source] = cursor
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func containsFold(vals []string, want string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// minMonthly returns the cheapest listed rate, or 0 when no pricing is
// known. Records without pricing are never excluded by a price cap.
func minMonthly(monthly map[string]float64) float64 {
	min := 0.0
	for _, p := range monthly {
		if min == 0 || p < min {
			min = p
		}
	}
	return min
}
