package main

import (
	"context"

	"github.com/spf13/cobra"

	lessons "github.com/goliatone/go-lessons"
	"github.com/goliatone/go-lessons/cmd/lessons/internal/bootstrap"
)

var moduleBuilder = bootstrap.BuildModule

type rootOptions struct {
	boot bootstrap.Options
}

func (o *rootOptions) module(ctx context.Context) (*lessons.Module, error) {
	return moduleBuilder(ctx, o.boot)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lessons",
		Short:         "Serve and export a Markdown lesson site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.boot.ConfigPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.boot.ContentDir, "content-dir", "", "Lesson content root (content/<topic>/<lesson>.md)")
	flags.StringVar(&opts.boot.BaseURL, "base-url", "", "Absolute site URL used for sitemap links")
	flags.StringVar(&opts.boot.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newExportCommand(opts),
		newPreviewCommand(opts),
		newIndexCommand(opts),
	)
	return cmd
}
