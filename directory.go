// Package directory ties the ingestion pipeline, the record store, and
// the dataset exporter together behind one façade for embedding the
// daycare directory in other programs. The daycarectl CLI is a thin
// wrapper over this package.
package directory

import (
	"context"
	"io"

	"github.com/sfdaycarelist/directory/internal/export"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/merge"
	"github.com/sfdaycarelist/directory/pkg/pipeline"
	"github.com/sfdaycarelist/directory/pkg/store"
	"github.com/sfdaycarelist/directory/pkg/store/memory"
)

// Directory is a handle on one daycare directory: its store, its merge
// rules, and its configured source collectors.
type Directory struct {
	store      store.Store
	mergeOpts  merge.Options
	collectors []pipeline.Collector
	concurrent bool
}

// New creates a Directory. Without options it uses an in-memory store
// and no collectors, which is enough for lookups over seeded data; real
// deployments pass WithStore and WithCollectors.
func New(opts ...Option) (*Directory, error) {
	d := &Directory{}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.store == nil {
		d.store = memory.New()
	}
	return d, nil
}

// Ingest runs a full ingestion pass over the configured collectors and
// returns the per-source summary.
func (d *Directory) Ingest(ctx context.Context) (*pipeline.Result, error) {
	engine := merge.NewEngine(d.mergeOpts)
	var opts []pipeline.Option
	if d.concurrent {
		opts = append(opts, pipeline.WithConcurrentSources())
	}
	return pipeline.New(d.store, engine, d.collectors, opts...).Run(ctx)
}

// Lookup returns the facility with the given slug.
func (d *Directory) Lookup(ctx context.Context, slug string) (*daycares.Daycare, error) {
	return d.store.GetBySlug(ctx, slug)
}

// Search returns facilities matching the filter.
func (d *Directory) Search(ctx context.Context, f store.Filter) ([]*daycares.Daycare, error) {
	return d.store.List(ctx, f)
}

// ExportDataset writes the active directory as JSON with generated SEO
// metadata.
func (d *Directory) ExportDataset(ctx context.Context, w io.Writer) error {
	return export.New(d.store).WriteDataset(ctx, w)
}

// ExportSitemap writes an XML sitemap of the active directory.
func (d *Directory) ExportSitemap(ctx context.Context, w io.Writer, baseURL string) error {
	return export.New(d.store).WriteSitemap(ctx, w, baseURL)
}

// Close releases the underlying store.
func (d *Directory) Close() error {
	return d.store.Close()
}
