package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-lessons/pkg/interfaces"
)

func newPreviewCommand(root *rootOptions) *cobra.Command {
	var (
		lesson string
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Render one lesson to stdout with its front matter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (lesson == "") {
				return fmt.Errorf("preview: pass either a file or --lesson topic/lesson")
			}
			module, err := root.module(cmd.Context())
			if err != nil {
				return err
			}

			var doc *interfaces.Document
			if lesson != "" {
				topic, name, ok := strings.Cut(lesson, "/")
				if !ok {
					return fmt.Errorf("preview: --lesson must be topic/lesson, got %q", lesson)
				}
				doc, err = module.PreviewLesson(cmd.Context(), topic, name)
			} else {
				doc, err = module.Preview(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path: %s\n\n", doc.FilePath)
			frontmatter, err := json.MarshalIndent(doc.FrontMatter, "", "  ")
			if err != nil {
				return fmt.Errorf("preview: encode front matter: %w", err)
			}
			fmt.Fprintf(out, "Frontmatter:\n%s\n\n", frontmatter)
			if raw {
				fmt.Fprintf(out, "Markdown Body:\n%s\n", doc.Body)
				return nil
			}
			fmt.Fprintf(out, "Rendered HTML:\n%s\n", doc.BodyHTML)
			return nil
		},
	}
	cmd.Flags().StringVar(&lesson, "lesson", "", "Indexed lesson to render, as topic/lesson")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Markdown body instead of HTML")
	return cmd
}
