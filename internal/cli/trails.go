package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahlplx/workforce/internal/audit"
	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/store"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect recorded checkpoints",
	}
	cmd.AddCommand(newCheckpointLsCmd())
	return cmd
}

func newCheckpointLsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List checkpoints, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			cps, err := st.ListCheckpoints(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no checkpoints")
				return nil
			}
			for _, cp := range cps {
				status := "ok"
				if !cp.Success {
					status = "failed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d files\t%s\n",
					cp.ID, cp.CreatedAt.Format("2006-01-02 15:04:05"), status, len(cp.Files), cp.TargetPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to list")
	return cmd
}

func newJournalCmd() *cobra.Command {
	var limitBytes int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the markdown decision journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			j := &audit.Journal{Home: home}
			text, err := j.Read(cmd.Context(), limitBytes)
			if err != nil {
				return err
			}
			if text == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "journal is empty")
				return nil
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&limitBytes, "limit", 0, "Maximum bytes from the end of the journal (0 = all)")
	return cmd
}

func newDecisionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "List recorded dispatch decisions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ds, err := st.ListDecisions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(ds) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no decisions")
				return nil
			}
			for _, d := range ds {
				state := d.State
				if d.HaltReason != "" {
					state += " (" + d.HaltReason + ")"
				}
				instr := d.Instruction
				if len(instr) > 60 {
					instr = instr[:60] + "..."
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s %d\t%s\t%s\n",
					d.DecisionID, state, d.RiskLevel, d.RiskScore,
					strings.Join(d.RoutedWorkers, ","), instr)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to list")
	return cmd
}
