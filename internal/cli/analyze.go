package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/risk"
)

func newAnalyzeCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "analyze <instruction>",
		Short: "Assess an instruction's risk without dispatching it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			rs, err := config.LoadRuleset(config.RulesetPath(home))
			if err != nil {
				return err
			}
			assessor, err := risk.NewAssessor(rs.Risk)
			if err != nil {
				return err
			}
			p := assessor.Analyze(risk.Request{
				Instruction: strings.Join(args, " "),
				TargetFiles: files,
			})
			printJSON(cmd, p)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&files, "file", nil, "Target file path (repeatable)")
	return cmd
}
