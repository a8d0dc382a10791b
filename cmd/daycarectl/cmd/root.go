// Package cmd implements the daycarectl commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/pkg/logging"
	"github.com/sfdaycarelist/directory/pkg/store"
	"github.com/sfdaycarelist/directory/pkg/store/memory"
	"github.com/sfdaycarelist/directory/pkg/store/postgres"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
	output  string

	cfg *config.Config
)

func newRootCmd(version, commit, date string) *cobra.Command {
	root := &cobra.Command{
		Use:     "daycarectl",
		Short:   "Manage the daycare directory ingestion pipeline",
		Long:    "daycarectl ingests daycare data from licensing, curated, and enrichment sources,\nmerges it into canonical records, and exports the directory dataset.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			cfg.UpdateFromFlags(verbose, quiet, noColor, output)
			setupLogging(cmd.Context())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.daycarectl.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "errors only")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (text, json)")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newExportCmd())
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context, version, commit, date string) error {
	root := newRootCmd(version, commit, date)
	if err := root.ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func setupLogging(_ context.Context) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	if cfg.Quiet {
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := logging.NewConsole()
	if cfg.LogFormat == "json" {
		logger = logging.NewJSON(os.Stderr)
	}
	logging.SetDefault(logger.Level(level))
}

// openStore selects the configured store: Postgres when a database URL
// is set, otherwise in-memory.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logging.Warn().Msg("no database_url configured, using in-memory store")
		return memory.New(), nil
	}
	return postgres.New(ctx, cfg.DatabaseURL)
}
