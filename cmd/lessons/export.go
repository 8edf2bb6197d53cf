package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCommand(root *rootOptions) *cobra.Command {
	var (
		output  string
		workers int
		clean   bool
		sitemap bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a static copy of the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.module(cmd.Context())
			if err != nil {
				return err
			}
			cfg := module.Container().Config().Export
			if cmd.Flags().Changed("output") {
				cfg.OutputDir = output
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("clean") {
				cfg.Clean = clean
			}
			if cmd.Flags().Changed("sitemap") {
				cfg.Sitemap = sitemap
			}

			result, err := module.Export(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pages and %d assets to %s in %s\n",
				result.Pages, result.Assets, result.OutputDir, result.Duration)
			if result.Sitemap {
				fmt.Fprintln(cmd.OutOrStdout(), "Sitemap: sitemap.xml")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (overrides export.output_dir)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent page renders (0 uses every CPU)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove the output directory first")
	cmd.Flags().BoolVar(&sitemap, "sitemap", false, "Write sitemap.xml")
	return cmd
}
