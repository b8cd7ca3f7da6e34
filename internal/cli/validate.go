package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/guardrail"
)

func newValidateCmd() *cobra.Command {
	var (
		level      string
		actionType string
		target     string
	)

	cmd := &cobra.Command{
		Use:   "validate <text>",
		Short: "Run one guardrail level against the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			rs, err := config.LoadRuleset(config.RulesetPath(home))
			if err != nil {
				return err
			}
			guards, err := guardrail.New(rs)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")

			var res guardrail.Result
			switch level {
			case "reasoning":
				res = guards.ValidateReasoning(text)
			case "action":
				res = guards.ValidateAction(guardrail.Action{Type: actionType, Target: target, Payload: text})
			case "output":
				res = guards.ValidateOutput(text)
			default:
				return fmt.Errorf("--level must be reasoning, action, or output")
			}
			printJSON(cmd, res)
			if !res.Passed {
				return fmt.Errorf("guardrail failed: %s", res.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "reasoning", "Guardrail level: reasoning, action, or output")
	cmd.Flags().StringVar(&actionType, "type", "", "Action type (action level only)")
	cmd.Flags().StringVar(&target, "target", "", "Action target (action level only)")
	return cmd
}
