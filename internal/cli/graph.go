package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/graph"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and validate the capability graph",
	}
	cmd.AddCommand(newGraphValidateCmd())
	cmd.AddCommand(newGraphShowCmd())
	cmd.AddCommand(newGraphFindCmd())
	cmd.AddCommand(newGraphHierarchyCmd())
	return cmd
}

func newGraphValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a graph document (defaults to <home>/graph.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GraphPath(config.MustHomeFrom(cmd.Context()))
			if len(args) == 1 {
				path = args[0]
			}
			g, err := graph.LoadFile(path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges (version %s)\n",
				len(g.Nodes()), len(g.Edges()), g.Version)
			return nil
		},
	}
	return cmd
}

func newGraphFindCmd() *cobra.Command {
	var (
		domain     string
		capability string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find workers by domain or capability keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (domain == "") == (capability == "") {
				return fmt.Errorf("exactly one of --domain or --capability is required")
			}
			home := config.MustHomeFrom(cmd.Context())
			g, err := graph.LoadFile(config.GraphPath(home))
			if err != nil {
				return err
			}
			var workers []graph.WorkerNode
			if domain != "" {
				workers = g.FindByDomain(domain)
			} else {
				workers = g.FindByCapability(capability)
			}
			if len(workers) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no workers matched")
				return nil
			}
			for _, w := range workers {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", w.ID, w.Kind, strings.Join(w.Capabilities, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Domain keyword to match")
	cmd.Flags().StringVar(&capability, "capability", "", "Capability keyword to match")
	return cmd
}

func newGraphHierarchyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hierarchy <node-id>",
		Short: "Walk reports_to edges upward from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			g, err := graph.LoadFile(config.GraphPath(home))
			if err != nil {
				return err
			}
			chain := g.Hierarchy(args[0])
			if chain == nil {
				return fmt.Errorf("unknown node %q", args[0])
			}
			for i, n := range chain {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s%s (%s)\n", strings.Repeat("  ", i), n.ID(), n.Kind())
			}
			return nil
		},
	}
	return cmd
}

func newGraphShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the graph's nodes and routing edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			g, err := graph.LoadFile(config.GraphPath(home))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range g.Nodes() {
				if n.Worker != nil {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", n.Worker.ID, n.Worker.Kind, strings.Join(n.Worker.Domain, ","))
				}
				if n.Team != nil {
					_, _ = fmt.Fprintf(out, "%s\tteam\tleader=%s members=%s\n", n.Team.ID, n.Team.LeaderID, strings.Join(n.Team.MemberIDs, ","))
				}
			}
			for _, e := range g.Edges() {
				if e.Kind != graph.EdgeRoutesTo {
					continue
				}
				_, _ = fmt.Fprintf(out, "route: %s -> %s when %q (priority %d)\n", e.From, e.To, e.Condition, e.Priority)
			}
			return nil
		},
	}
	return cmd
}
