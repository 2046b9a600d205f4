package main

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm <paths...>",
		Short: "Stage removal of tracked files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			if recursive {
				for _, dir := range args {
					if err := r.RemoveDirectory(dir); err != nil {
						return err
					}
				}
				return nil
			}
			failures, err := r.Remove(args)
			if err != nil {
				return err
			}
			for _, f := range failures {
				fmt.Fprintln(cmd.ErrOrStderr(), f.Error())
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d path(s) could not be removed", len(failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove tracked files under the given directories")
	return cmd
}
