package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sfdaycarelist/directory/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the directory dataset",
	}
	cmd.AddCommand(newExportDatasetCmd())
	cmd.AddCommand(newExportSitemapCmd())
	return cmd
}

func newExportDatasetCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Write the directory as JSON with generated SEO metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			w, closeFn, err := openOutput(out)
			if err != nil {
				return err
			}
			defer closeFn()
			return export.New(st).WriteDataset(ctx, w)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newExportSitemapCmd() *cobra.Command {
	var (
		out     string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Write an XML sitemap of the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			w, closeFn, err := openOutput(out)
			if err != nil {
				return err
			}
			defer closeFn()
			return export.New(st).WriteSitemap(ctx, w, baseURL)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&baseURL, "base-url", "https://sfdaycarelist.com", "site base URL")
	return cmd
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
