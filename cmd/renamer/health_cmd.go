package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/ui"
)

func newHealthCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check configuration, providers and writable directories",
		Long: `Validate the configuration before a scan.

Checks:
  - a TMDB API key is set (movie and TV lookups need it)
  - every path template expands
  - destination and undo history directories are writable
  - scan.source_root exists when set`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			report := svc.Health()
			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else if len(report.Issues) == 0 {
				fmt.Fprintf(out, "%s Configuration looks good\n", ui.Success("✓"))
			} else {
				if err := healthTable(report.Issues).Print(out); err != nil {
					return err
				}
			}

			if !report.Healthy {
				return fmt.Errorf("health check found critical issues")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	return cmd
}
