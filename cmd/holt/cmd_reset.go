package main

import (
	"strconv"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "reset <n>",
		Short: "Move the current branch n commits back",
		Long: `Moves the current branch n commits back along its first-parent chain.
Without --hard the index and working directory are left untouched, so
the undone changes show up as staged. With --hard they are rewritten to
match the target commit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			if hard {
				return r.HardResetBack(n)
			}
			return r.ResetBack(n)
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "also reset the index and working directory")
	return cmd
}
