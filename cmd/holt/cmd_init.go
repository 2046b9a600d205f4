package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var remoteURL string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a repository, or open the existing one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			r, err := repo.OpenOrInit(cmd.Context(), path, remoteURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repository at %s\n", r.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteURL, "remote", "", "clone initial state from this remote URL")
	return cmd
}
