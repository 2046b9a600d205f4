package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [remote] [branch]",
		Short: "Upload the local branch to a remote",
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
			res, err := r.Push(cmd.Context(), remoteName, branch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.OldRemote == res.NewRemote {
				fmt.Fprintf(out, "everything up-to-date (%s)\n", shortHash(res.NewRemote))
				return nil
			}
			if res.OldRemote == "" {
				fmt.Fprintf(out, "pushed new branch %s at %s (%d objects)\n", res.Branch, shortHash(res.NewRemote), res.Uploaded)
				return nil
			}
			fmt.Fprintf(out, "pushed %s: %s -> %s (%d objects)\n", res.Branch, shortHash(res.OldRemote), shortHash(res.NewRemote), res.Uploaded)
			return nil
		},
	}
}
