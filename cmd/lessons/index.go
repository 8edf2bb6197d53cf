package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	lessons "github.com/goliatone/go-lessons"
)

type indexOutput struct {
	Tag     string           `json:"tag,omitempty"`
	Lessons []lessons.Record `json:"lessons"`
	Tags    []string         `json:"tags"`
}

func newIndexCommand(root *rootOptions) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Print the lesson index as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := root.module(cmd.Context())
			if err != nil {
				return err
			}
			idx := module.Index()
			out := indexOutput{Lessons: idx.All(), Tags: idx.Tags()}
			if cmd.Flags().Changed("tag") {
				out.Tag = tag
				out.Lessons = idx.ByTag(tag)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("index: encode: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only list lessons carrying this exact tag")
	return cmd
}
