package main

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url> [dir]",
		Short: "Create a local repository from a remote",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			} else {
				dest = defaultCloneDir(args[0])
			}
			r, err := repo.Clone(cmd.Context(), args[0], dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cloned into %s\n", r.Path())
			return nil
		},
	}
}

func defaultCloneDir(remoteURL string) string {
	if u, err := url.Parse(remoteURL); err == nil {
		if base := path.Base(strings.TrimRight(u.Path, "/")); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "repository"
}
