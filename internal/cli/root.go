// Package cli wires the workforce command tree: a serve command for the HTTP
// daemon and local one-shot commands for dispatch, risk analysis, guardrail
// checks, routing, and the recorded trails.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "workforce",
		Short:        "Workforce — risk-gated task dispatch over a capability graph",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Workforce home directory (default: ~/.workforce, env: WORKFORCE_HOME)")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newServeCmd())

	cmd.AddCommand(newDispatchCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newRouteCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newDecisionsCmd())
	cmd.AddCommand(newJournalCmd())
	cmd.AddCommand(newApikeyCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
