package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/graph"
	"github.com/rahlplx/workforce/internal/guardrail"
	"github.com/rahlplx/workforce/internal/risk"
	"github.com/rahlplx/workforce/internal/store"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the home directory, graph, ruleset, and store",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			var problems []string

			if _, err := graph.LoadFile(config.GraphPath(home)); err != nil {
				if os.IsNotExist(err) {
					problems = append(problems, fmt.Sprintf("graph: %s not found (the server falls back to a single-node default)", config.GraphPath(home)))
				} else {
					problems = append(problems, "graph: "+err.Error())
				}
			}

			rs, err := config.LoadRuleset(config.RulesetPath(home))
			if err != nil {
				problems = append(problems, "ruleset: "+err.Error())
			} else {
				if _, err := risk.NewAssessor(rs.Risk); err != nil {
					problems = append(problems, "ruleset: "+err.Error())
				}
				if _, err := guardrail.New(rs); err != nil {
					problems = append(problems, "ruleset: "+err.Error())
				}
			}

			if st, err := store.Open(home); err != nil {
				problems = append(problems, "store: "+err.Error())
			} else {
				_ = st.Close()
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
