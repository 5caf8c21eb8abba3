package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/ui"
)

func newUndoCmd() *cobra.Command {
	var (
		jsonOutput bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Move the files of the last executed batch back",
		Long: `Revert the most recent 'scan --execute' batch.

Files are restored in reverse order. A file is left in place when it no
longer exists at its new location or when something else now occupies its
original path. The batch is removed from history either way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if !yes && !jsonOutput && ui.IsInteractive() {
				batches, err := svc.History()
				if err != nil {
					return err
				}
				if len(batches) > 0 && !ui.Confirm(fmt.Sprintf("Move %d files of batch %s back?", len(batches[0].Moves), shortID(batches[0].ID))) {
					fmt.Fprintln(out, ui.Dim("Undo cancelled."))
					return nil
				}
			}

			report, err := svc.Undo(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(out, report)
			}
			if !report.Success {
				fmt.Fprintln(out, ui.Warning(report.Message))
				return nil
			}

			for _, f := range report.Failures {
				fmt.Fprintf(out, "%s %s: %s\n", ui.Error("Not restored:"), f.Dest, f.Error)
			}
			fmt.Fprintf(out, "%s %s (batch %s)\n", ui.Success("✓"), report.Message, shortID(report.BatchID))
			if report.FailureCount > 0 {
				return fmt.Errorf("%d files could not be restored", report.FailureCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		jsonOutput bool
		activityN  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List executed batches that can be undone",
		Long: `List the batches recorded for undo, newest first.

With --activity N the last N entries of the activity journal are shown
instead, including failed moves and undos.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if activityN > 0 {
				entries, err := svc.Activity(activityN)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, ui.Dim("No activity recorded."))
					return nil
				}
				return activityTable(entries).Print(out)
			}

			batches, err := svc.History()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, batches)
			}
			if len(batches) == 0 {
				fmt.Fprintln(out, ui.Dim("No history found."))
				return nil
			}
			return historyTable(batches).Print(out)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	cmd.Flags().IntVar(&activityN, "activity", 0, "show the last N activity journal entries")
	return cmd
}
