package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lesson site over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("watch") {
				root.boot.Watch = &watch
			}
			module, err := root.module(cmd.Context())
			if err != nil {
				return err
			}
			return module.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&root.boot.Addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the lesson index when content changes")
	return cmd
}
