package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [remote] [branch]",
		Short: "Fetch from remote and fast-forward the local branch",
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
			res, err := r.Pull(cmd.Context(), remoteName, branch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.UpToDate {
				fmt.Fprintf(out, "already up to date (%s)\n", shortHash(res.NewLocal))
				return nil
			}
			if res.OldLocal == "" {
				fmt.Fprintf(out, "created local branch %s at %s (%d objects fetched)\n", res.Branch, shortHash(res.NewLocal), res.Fetched)
				return nil
			}
			fmt.Fprintf(out, "updated %s: %s -> %s (%d objects fetched)\n", res.Branch, shortHash(res.OldLocal), shortHash(res.NewLocal), res.Fetched)
			return nil
		},
	}
}
