// Package pipeline orchestrates a full ingestion run: each source is
// collected page by page, every raw record is matched against the
// existing directory, merged under precedence rules, and upserted.
// Sources run in a fixed order so precedence-protected fields are laid
// down before enrichment arrives.
package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/logging"
	"github.com/sfdaycarelist/directory/pkg/match"
	"github.com/sfdaycarelist/directory/pkg/merge"
	"github.com/sfdaycarelist/directory/pkg/normalize"
	"github.com/sfdaycarelist/directory/pkg/slug"
	"github.com/sfdaycarelist/directory/pkg/store"
)

// Pipeline runs ingestion over a set of source collectors.
type Pipeline struct {
	store      store.Store
	engine     *merge.Engine
	alloc      *slug.Allocator
	collectors []Collector
	concurrent bool
	maxPages   int

	// mu serializes the match+merge+upsert critical section and guards
	// the in-memory candidate index.
	mu    sync.Mutex
	index []*daycares.Daycare

	newID func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrentSources collects all sources in parallel. Record writes
// stay serialized, and provenance ranks keep field precedence intact
// regardless of arrival order.
func WithConcurrentSources() Option {
	return func(p *Pipeline) { p.concurrent = true }
}

// WithMaxPages overrides the per-source page safety limit.
func WithMaxPages(n int) Option {
	return func(p *Pipeline) { p.maxPages = n }
}

// New creates a Pipeline. Collectors are run in the fixed ingestion
// order of their sources, regardless of the order given here.
func New(st store.Store, engine *merge.Engine, collectors []Collector, opts ...Option) *Pipeline {
	ordered := make([]Collector, 0, len(collectors))
	ordered = append(ordered, collectors...)
	rank := map[daycares.SourceID]int{}
	for i, id := range daycares.SourceIDs() {
		rank[id] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Source()] < rank[ordered[j].Source()]
	})

	p := &Pipeline{
		store:      st,
		engine:     engine,
		alloc:      slug.NewAllocator(st),
		collectors: ordered,
		maxPages:   constants.MaxPages,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes a full ingestion pass and returns the per-source
// summary. A source that fails fatally is recorded in the summary and
// does not stop the other sources; only context cancellation and
// unrecoverable store failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		StartedAt: time.Now().UTC(),
		PerSource: map[daycares.SourceID]*SourceStats{},
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	index, err := p.store.List(ctx, store.Filter{})
	if err != nil {
		return result, fmt.Errorf("loading existing records: %w", err)
	}
	p.index = index

	if p.concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range p.collectors {
			c := c
			stats := result.stats(c.Source())
			g.Go(func() error {
				return p.runSource(gctx, c, stats)
			})
		}
		return result, g.Wait()
	}

	for _, c := range p.collectors {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.runSource(ctx, c, result.stats(c.Source())); err != nil {
			return result, err
		}
	}
	return result, nil
}

// runSource drains one collector. Transient page failures are skipped
// and the pass resumes behind them; fatal failures abandon the source
// but are not run errors.
func (p *Pipeline) runSource(ctx context.Context, c Collector, stats *SourceStats) error {
	source := c.Source()
	log := logging.FromContext(ctx).With().Str("source", source.String()).Logger()

	cursor, err := p.store.Cursor(ctx, source)
	if err != nil {
		return fmt.Errorf("loading cursor for %s: %w", source, err)
	}
	if cursor != "" {
		log.Info().Str("cursor", cursor).Msg("resuming from saved cursor")
	}

	failures := 0
	for page := 0; page < p.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, next, err := c.Collect(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.IsConfig(err) || next == "" {
				log.Error().Err(err).Msg("source abandoned")
				stats.Fatal = err.Error()
				stats.countError(errors.Kind(err))
				return nil
			}
			// Page skipped; continue behind it.
			log.Warn().Err(err).Str("next_cursor", next).Msg("page skipped")
			stats.PagesSkipped++
			stats.countError(errors.Kind(err))
			failures++
			if failures >= constants.MaxPageFailures {
				log.Error().Int("failures", failures).Msg("too many consecutive page failures, abandoning source")
				stats.Fatal = fmt.Sprintf("abandoned after %d consecutive page failures", failures)
				return nil
			}
			cursor = next
			if err := p.store.SaveCursor(ctx, source, cursor); err != nil {
				return fmt.Errorf("saving cursor for %s: %w", source, err)
			}
			continue
		}
		failures = 0

		for _, raw := range records {
			if err := p.processRecord(ctx, raw, stats); err != nil {
				return err
			}
		}

		if next == "" {
			// Clean termination; the next run starts from the beginning.
			if err := p.store.SaveCursor(ctx, source, ""); err != nil {
				return fmt.Errorf("saving cursor for %s: %w", source, err)
			}
			log.Info().
				Int("inserted", stats.Inserted).
				Int("updated", stats.Updated).
				Int("skipped", stats.Skipped).
				Int("errored", stats.Errored).
				Msg("source pass complete")
			return nil
		}
		cursor = next
		if err := p.store.SaveCursor(ctx, source, cursor); err != nil {
			return fmt.Errorf("saving cursor for %s: %w", source, err)
		}
	}
	log.Warn().Int("max_pages", p.maxPages).Msg("page safety limit reached")
	return nil
}

// processRecord matches one raw record against the directory, merges
// it, and upserts the result. Validation failures are counted as
// skipped; a double slug conflict is a run-level failure.
func (p *Pipeline) processRecord(ctx context.Context, raw daycares.RawRecord, stats *SourceStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := logging.FromContext(ctx)

	sig := normalize.NewSignature(raw.Name, raw.Location.Address, raw.Contact.Phone)
	candidate := match.Best(sig, p.index)

	var existing *daycares.Daycare
	if candidate != nil {
		existing = candidate.Daycare
	}

	merged, err := p.engine.Apply(existing, raw)
	if err != nil {
		if errors.IsValidation(err) {
			log.Debug().Err(err).Str("source", raw.Source.String()).Msg("record skipped")
			stats.Skipped++
			stats.countError(errors.Kind(err))
			return nil
		}
		stats.Errored++
		stats.countError(errors.Kind(err))
		return nil
	}

	if existing != nil {
		// Identity is immutable across merges.
		merged.ID = existing.ID
		merged.Slug = existing.Slug
		if unchangedExceptTimestamp(existing, merged) {
			stats.Skipped++
			return nil
		}
		if _, err := p.upsert(ctx, merged, raw); err != nil {
			if errors.IsConflict(err) {
				return err
			}
			stats.Errored++
			stats.countError(errors.Kind(err))
			return nil
		}
		p.replaceInIndex(merged)
		stats.Updated++
		return nil
	}

	merged.ID = p.newID()
	allocated, err := p.alloc.Allocate(ctx, merged.Name)
	if err != nil {
		if errors.IsValidation(err) {
			stats.Skipped++
			stats.countError(errors.Kind(err))
			return nil
		}
		return fmt.Errorf("allocating slug for %q: %w", merged.Name, err)
	}
	merged.Slug = allocated

	if _, err := p.upsert(ctx, merged, raw); err != nil {
		if !errors.IsConflict(err) {
			stats.Errored++
			stats.countError(errors.Kind(err))
			return nil
		}
		// Another writer claimed the slug between allocation and insert.
		// Re-allocate once; a second conflict means something is badly
		// wrong with slug accounting and the run stops.
		log.Warn().Str("slug", merged.Slug).Msg("slug conflict on insert, reallocating")
		allocated, allocErr := p.alloc.Allocate(ctx, merged.Name)
		if allocErr != nil {
			return fmt.Errorf("reallocating slug for %q: %w", merged.Name, allocErr)
		}
		merged.Slug = allocated
		if _, err := p.upsert(ctx, merged, raw); err != nil {
			return fmt.Errorf("inserting %q after slug reallocation: %w", merged.Name, err)
		}
	}
	p.index = append(p.index, merged)
	stats.Inserted++
	return nil
}

func (p *Pipeline) upsert(ctx context.Context, d *daycares.Daycare, raw daycares.RawRecord) (bool, error) {
	created, err := p.store.Upsert(ctx, d)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).
			Str("slug", d.Slug).
			Str("source", raw.Source.String()).
			Msg("upsert failed")
		return false, err
	}
	return created, nil
}

func (p *Pipeline) replaceInIndex(d *daycares.Daycare) {
	for i, existing := range p.index {
		if existing.ID == d.ID {
			p.index[i] = d
			return
		}
	}
	p.index = append(p.index, d)
}

// unchangedExceptTimestamp reports whether the merge produced no change
// beyond the refreshed UpdatedAt, so the write can be elided and the
// record counted as skipped.
func unchangedExceptTimestamp(before, after *daycares.Daycare) bool {
	tmp := after.Clone()
	tmp.UpdatedAt = before.UpdatedAt
	tmp.Views = before.Views
	return reflect.DeepEqual(before, tmp)
}
