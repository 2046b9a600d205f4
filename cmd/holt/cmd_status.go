package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			statuses, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			branch := "HEAD"
			head, err := r.Head()
			if err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}
			fmt.Fprintf(out, "on %s\n", branch)

			var staged, unstaged, untracked []string
			for _, s := range statuses {
				line := fmt.Sprintf("  %s: %s", s.Change, s.Path)
				switch s.Handling {
				case repo.HandlingStaged:
					staged = append(staged, line)
				case repo.HandlingUnstaged:
					unstaged = append(unstaged, line)
				case repo.HandlingUntracked:
					untracked = append(untracked, fmt.Sprintf("  %s", s.Path))
				}
			}

			printGroup(out, "staged:", staged)
			printGroup(out, "unstaged:", unstaged)
			printGroup(out, "untracked:", untracked)

			if len(staged)+len(unstaged)+len(untracked) == 0 {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func printGroup(out io.Writer, header string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, header)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}
