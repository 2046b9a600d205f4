package main

import (
	"fmt"
	"net/http"

	"github.com/holtvcs/holt/pkg/remote"
	"github.com/holtvcs/holt/pkg/repo"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve this repository over the Holt HTTP protocol",
		Long: `Serves the repository's objects and branch refs so other clients can
clone, fetch, and push. Ref updates received from clients are held in
memory for the lifetime of the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Discover(".")
			if err != nil {
				return err
			}

			srv := remote.NewServer(r.Store)
			refs, err := r.ListRefs("heads")
			if err != nil {
				return err
			}
			for name, hash := range refs {
				if hash != "" {
					srv.SetRef("refs/"+name, hash)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on %s\n", r.Path(), addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7420", "listen address")
	return cmd
}
