package main

import (
	"fmt"
	"time"

	"github.com/holtvcs/holt/pkg/object"
	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show commit history, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}
			start := ""
			if len(args) == 1 {
				start = args[0]
			}
			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				ts := time.Unix(e.Commit.Timestamp, 0).Format(time.RFC1123Z)
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				fmt.Fprintf(out, "author %s\n", e.Commit.Author)
				fmt.Fprintf(out, "date   %s\n", ts)
				if e.Commit.Signature != "" {
					fmt.Fprintln(out, "signed")
				}
				fmt.Fprintf(out, "\n    %s\n\n", e.Commit.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")
	return cmd
}

func shortHash(h object.Hash) string {
	s := string(h)
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
