package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/alerts"
	"github.com/rahlplx/workforce/internal/audit"
	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/executor"
	"github.com/rahlplx/workforce/internal/graph"
	"github.com/rahlplx/workforce/internal/guardrail"
	"github.com/rahlplx/workforce/internal/pipeline"
	"github.com/rahlplx/workforce/internal/risk"
	"github.com/rahlplx/workforce/internal/router"
	"github.com/rahlplx/workforce/internal/store"
)

// buildEngine assembles a local decision engine from the home directory, the
// same wiring the server uses minus the SSE hub.
func buildEngine(home string) (*pipeline.Engine, store.Store, error) {
	g, err := graph.LoadFile(config.GraphPath(home))
	if err != nil {
		return nil, nil, fmt.Errorf("load graph: %w (run 'workforce graph validate' for details)", err)
	}
	rs, err := config.LoadRuleset(config.RulesetPath(home))
	if err != nil {
		return nil, nil, err
	}
	assessor, err := risk.NewAssessor(rs.Risk)
	if err != nil {
		return nil, nil, err
	}
	guards, err := guardrail.New(rs)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(home)
	if err != nil {
		return nil, nil, err
	}
	eng := &pipeline.Engine{
		Graphs:      graph.NewHolder(g),
		Assessor:    assessor,
		Guards:      guards,
		Checkpoints: &risk.CheckpointManager{Dir: config.CheckpointsDir(home), Store: st},
		Exec:        executor.Stub{},
		Journal:     &audit.Journal{Home: home},
		Store:       st,
		Alerts:      alerts.NewRegistry(),
	}
	return eng, st, nil
}

func newDispatchCmd() *cobra.Command {
	var (
		intentType string
		files      []string
		targetPath string
		confirm    bool
	)

	cmd := &cobra.Command{
		Use:   "dispatch <instruction>",
		Short: "Run one instruction through the full decision loop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			eng, st, err := buildEngine(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if confirm {
				eng.Confirm = func(risk.Profile) bool { return true }
			} else if isTerminal() {
				eng.Confirm = promptConfirm(cmd)
			}

			resp, err := eng.Dispatch(cmd.Context(), pipeline.Request{
				Instruction: strings.Join(args, " "),
				TargetFiles: files,
				TargetPath:  targetPath,
				Intent:      router.Intent{Type: intentType},
			})
			if err != nil {
				return err
			}
			printJSON(cmd, resp)
			if resp.Halted() {
				return fmt.Errorf("dispatch halted: %s", resp.HaltReason)
			}
			if resp.PendingConfirmation {
				return errors.New("dispatch held: confirmation required (re-run with --confirm)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&intentType, "intent", "", "Intent type for routing")
	cmd.Flags().StringArrayVar(&files, "file", nil, "Target file, relative to --target (repeatable)")
	cmd.Flags().StringVar(&targetPath, "target", ".", "Root directory for checkpoint snapshots")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Grant confirmation for HIGH and CRITICAL risk")
	return cmd
}

func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// promptConfirm asks on the terminal once the assessor demands confirmation.
func promptConfirm(cmd *cobra.Command) func(risk.Profile) bool {
	return func(p risk.Profile) bool {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Risk %s (score %d): %s\nProceed? [y/N] ",
			p.Level, p.Score, strings.Join(p.Reasons, ", "))
		var answer string
		_, _ = fmt.Fscanln(os.Stdin, &answer)
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
