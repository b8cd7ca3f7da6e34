package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/graph"
	"github.com/rahlplx/workforce/internal/router"
)

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <intent-type>",
		Short: "Resolve an intent to workers without dispatching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			g, err := graph.LoadFile(config.GraphPath(home))
			if err != nil {
				return fmt.Errorf("load graph: %w", err)
			}
			workers := router.Route(g, router.Intent{Type: args[0]})
			if len(workers) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no specialist matched")
				return nil
			}
			for _, w := range workers {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.ID, w.Kind)
			}
			return nil
		},
	}
	return cmd
}
