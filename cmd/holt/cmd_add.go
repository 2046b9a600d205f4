package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "add [files...]",
		Short: "Stage files for the next commit",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			if all {
				return r.StageAll()
			}
			if len(args) == 0 {
				return fmt.Errorf("nothing specified; use file arguments or --all")
			}
			failures, err := r.Stage(args)
			if err != nil {
				return err
			}
			for _, f := range failures {
				fmt.Fprintln(cmd.ErrOrStderr(), f.Error())
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d path(s) could not be staged", len(failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "A", false, "stage all changes, including deletions")
	return cmd
}
