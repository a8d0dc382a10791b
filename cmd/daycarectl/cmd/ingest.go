package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sfdaycarelist/directory/internal/sources/licensing"
	"github.com/sfdaycarelist/directory/internal/sources/manual"
	"github.com/sfdaycarelist/directory/internal/sources/places"
	"github.com/sfdaycarelist/directory/internal/sources/reviews"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/logging"
	"github.com/sfdaycarelist/directory/pkg/merge"
	"github.com/sfdaycarelist/directory/pkg/pipeline"
	"github.com/sfdaycarelist/directory/pkg/store"
)

func newIngestCmd() *cobra.Command {
	var (
		sourceNames []string
		concurrent  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the ingestion pipeline",
		Long: "Collect records from the configured sources, merge them into canonical\n" +
			"records under source precedence, and upsert them into the store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			collectors, err := buildCollectors(st, sourceNames)
			if err != nil {
				return err
			}

			engine := merge.NewEngine(merge.Options{
				MaxReviewsPerSource: cfg.MaxReviewsPerSource,
				MaxPhotosPerSource:  cfg.MaxPhotosPerSource,
			})

			var opts []pipeline.Option
			if concurrent {
				opts = append(opts, pipeline.WithConcurrentSources())
			}

			result, err := pipeline.New(st, engine, collectors, opts...).Run(ctx)
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}

	cmd.Flags().StringSliceVar(&sourceNames, "sources", nil,
		"sources to ingest (licensing, manual, places, reviews); default all configured")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "collect sources in parallel")
	return cmd
}

// buildCollectors creates a collector per requested source. A source
// whose configuration is invalid is skipped with a warning unless it
// was requested explicitly.
func buildCollectors(st store.Store, names []string) ([]pipeline.Collector, error) {
	requested := map[daycares.SourceID]bool{}
	explicit := len(names) > 0
	for _, n := range names {
		id := daycares.SourceID(strings.ToLower(strings.TrimSpace(n)))
		if !id.IsValid() {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		requested[id] = true
	}
	want := func(id daycares.SourceID) bool { return !explicit || requested[id] }

	var collectors []pipeline.Collector
	add := func(id daycares.SourceID, c pipeline.Collector, err error) error {
		if err != nil {
			if explicit {
				return err
			}
			logging.Warn().Err(err).Str("source", id.String()).Msg("source not configured, skipping")
			return nil
		}
		collectors = append(collectors, c)
		return nil
	}

	if want(daycares.SourceLicensing) {
		c, err := licensing.New(cfg.Licensing)
		if err := add(daycares.SourceLicensing, c, err); err != nil {
			return nil, err
		}
	}
	if want(daycares.SourceManual) {
		c, err := manual.New(cfg.Manual, st)
		if err := add(daycares.SourceManual, c, err); err != nil {
			return nil, err
		}
	}
	if want(daycares.SourcePlaces) {
		c, err := places.New(cfg.Places)
		if err := add(daycares.SourcePlaces, c, err); err != nil {
			return nil, err
		}
	}
	if want(daycares.SourceReviews) {
		c, err := reviews.New(cfg.Reviews)
		if err := add(daycares.SourceReviews, c, err); err != nil {
			return nil, err
		}
	}
	if len(collectors) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return collectors, nil
}

func printResult(result *pipeline.Result) error {
	if cfg.Output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Run finished in %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	for _, id := range daycares.SourceIDs() {
		s, ok := result.PerSource[id]
		if !ok {
			continue
		}
		fmt.Printf("  %-10s inserted=%d updated=%d skipped=%d errored=%d",
			id, s.Inserted, s.Updated, s.Skipped, s.Errored)
		if s.PagesSkipped > 0 {
			fmt.Printf(" pages_skipped=%d", s.PagesSkipped)
		}
		if s.Fatal != "" {
			fmt.Printf(" FATAL: %s", s.Fatal)
		}
		fmt.Println()
	}
	totals := result.Totals()
	fmt.Printf("  %-10s inserted=%d updated=%d skipped=%d errored=%d\n",
		"total", totals.Inserted, totals.Updated, totals.Skipped, totals.Errored)
	return nil
}
