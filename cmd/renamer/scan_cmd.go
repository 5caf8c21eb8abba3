package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/scanner"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/ui"
)

var errAborted = errors.New("aborted by user")

type scanOptions struct {
	execute     bool
	auto        bool
	interactive bool
	minSizeMB   float64
	jsonOutput  bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Identify media files and propose (or apply) new locations",
		Long: `Scan files and directories for movies, TV episodes, books and audiobooks,
look each one up and show where it would be moved.

Nothing is moved unless --execute is given. In a terminal you are asked to
choose whenever a file has more than one match; --auto always takes the best
match. Without paths, scan.source_root from the config is scanned.

Examples:
  renamer scan ~/Downloads
  renamer scan ~/Downloads --execute
  renamer scan ~/Downloads/Show.S01E01.mkv --auto --execute
  renamer scan --min-size 0 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("min-size") {
				opts.minSizeMB = -1
			}
			return runScan(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.execute, "execute", false, "move files (default is a dry run)")
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "always pick the best match without prompting")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", true, "prompt when a file has several matches")
	cmd.Flags().Float64Var(&opts.minSizeMB, "min-size", 50, "minimum video size in MB (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the plan as JSON")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts scanOptions) error {
	svc, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var results []scanner.Result
	start := time.Now()
	err = ui.RunWithSpinner("Scanning", cancel, func(status func(string)) error {
		var scanErr error
		results, scanErr = svc.ScanWithProgress(ctx, args, opts.minSizeMB, func(p scanner.Progress) {
			status(fmt.Sprintf("%d/%d %s", p.Done, p.Total, filepath.Base(p.Path)))
		})
		return scanErr
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interactive := opts.interactive && !opts.auto && !opts.jsonOutput && ui.IsInteractive()
	plan, err := buildPlan(svc, results, interactive, ui.Pick)
	if err != nil {
		return err
	}

	if opts.jsonOutput && !opts.execute {
		return writeJSON(out, plan)
	}

	destRoot := svc.Config().Destinations.For(media.TypeUnknown)
	if !opts.jsonOutput {
		if len(plan) == 0 {
			fmt.Fprintln(out, ui.Warning("No media files found."))
			return nil
		}
		if err := planTable(plan, destRoot).Print(out); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Dim(fmt.Sprintf("%d files identified in %s", len(plan), ui.FormatDuration(time.Since(start)))))
	}

	if !opts.execute {
		fmt.Fprintf(out, "\n%s: no files were moved. Use --execute to apply changes.\n", ui.Warning("DRY RUN"))
		return nil
	}
	return executePlan(ctx, out, svc, plan, opts.jsonOutput)
}

type picker func(header string, options []ui.PickOption) (ui.PickResult, error)

// buildPlan chooses a candidate for every result. With interactive set,
// files with more than one candidate are offered to pick; otherwise the
// top candidate wins.
func buildPlan(svc *service.Service, results []scanner.Result, interactive bool, pick picker) ([]plannedMove, error) {
	plan := make([]plannedMove, 0, len(results))
	for _, r := range results {
		p := plannedMove{Path: r.Path, Root: r.Root, Type: r.Identity.Type, Proposed: r.ProposedPath}

		switch {
		case len(r.Candidates) == 0:
		case len(r.Candidates) == 1 || !interactive:
			c := r.Candidates[0]
			p.Candidate = &c
		default:
			options := make([]ui.PickOption, len(r.Candidates))
			for i, c := range r.Candidates {
				options[i] = ui.PickOption{Label: candidateLabel(c), Detail: c.Overview}
			}
			choice, err := pick(fmt.Sprintf("Several matches for %s", filepath.Base(r.Path)), options)
			if err != nil {
				return nil, err
			}
			if choice.Quit {
				return nil, errAborted
			}
			if choice.Skipped || choice.Index < 0 {
				p.Skipped = true
				break
			}
			c := r.Candidates[choice.Index]
			p.Candidate = &c
			proposed, err := svc.Preview(r.Path, &c)
			if err != nil {
				return nil, err
			}
			p.Proposed = proposed
		}

		if p.Candidate != nil && p.Candidate.Type.Known() {
			p.Type = p.Candidate.Type
		}
		plan = append(plan, p)
	}
	return plan, nil
}

func executePlan(ctx context.Context, out io.Writer, svc *service.Service, plan []plannedMove, jsonOutput bool) error {
	items := make([]service.ExecuteItem, 0, len(plan))
	for _, p := range plan {
		if !p.Skipped {
			items = append(items, p.item())
		}
	}
	if len(items) == 0 {
		fmt.Fprintln(out, ui.Warning("Nothing to move."))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var report *service.ExecuteReport
	err := ui.RunWithSpinner("Moving", cancel, func(status func(string)) error {
		var execErr error
		report, execErr = svc.ExecuteWithProgress(ctx, items, func(file string, copied, total int64) {
			status(fmt.Sprintf("%s %s / %s", filepath.Base(file), humanize.IBytes(uint64(copied)), humanize.IBytes(uint64(total))))
		})
		return execErr
	})
	if jsonOutput && report != nil {
		if werr := writeJSON(out, report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return nil
	}

	fmt.Fprintln(out)
	for _, m := range report.Moved {
		if !m.Associated {
			fmt.Fprintf(out, "%s %s → %s\n", ui.Success("Moved:"), filepath.Base(m.Src), ui.Path(m.Dest))
		}
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "%s %s: %s\n", ui.Error("Failed:"), e.File, e.Error)
	}
	if report.BatchID != "" {
		fmt.Fprintf(out, "\n%s: moved %d files (batch %s). Run 'renamer undo' to revert.\n",
			ui.Success("SUCCESS"), len(report.Moved), shortID(report.BatchID))
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d files could not be moved", len(report.Errors))
	}
	return nil
}
