package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [remote] [branch]",
		Short: "Download remote history without touching local branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			remoteName, branch := "", ""
			if len(args) > 0 {
				remoteName = args[0]
			}
			if len(args) > 1 {
				branch = args[1]
			}
			tip, fetched, err := r.Fetch(cmd.Context(), remoteName, branch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d objects, remote tip %s\n", fetched, shortHash(tip))
			return nil
		},
	}
}
