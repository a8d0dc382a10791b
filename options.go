package directory

import (
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/merge"
	"github.com/sfdaycarelist/directory/pkg/pipeline"
	"github.com/sfdaycarelist/directory/pkg/store"
)

// Option configures a Directory.
type Option func(*Directory) error

// WithStore sets the record store.
func WithStore(st store.Store) Option {
	return func(d *Directory) error {
		if st == nil {
			return errors.New("store cannot be nil")
		}
		d.store = st
		return nil
	}
}

// WithCollectors sets the source collectors used by Ingest.
func WithCollectors(collectors ...pipeline.Collector) Option {
	return func(d *Directory) error {
		d.collectors = append(d.collectors, collectors...)
		return nil
	}
}

// WithMergeOptions overrides the merge limits.
func WithMergeOptions(opts merge.Options) Option {
	return func(d *Directory) error {
		d.mergeOpts = opts
		return nil
	}
}

// WithConcurrentCollection collects sources in parallel during Ingest.
func WithConcurrentCollection() Option {
	return func(d *Directory) error {
		d.concurrent = true
		return nil
	}
}
