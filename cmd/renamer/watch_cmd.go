package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/ui"
	"github.com/kbruxvoort/file-renamer/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		settle time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Organize new media files as they appear",
		Long: `Watch directories and organize each new media file once it stops changing.

Every file takes its best match, exactly like 'scan --auto --execute', and
each file is recorded as its own undo batch. Without dirs, scan.source_root
from the config is watched.

Examples:
  renamer watch ~/Downloads
  renamer watch --settle 2m
  renamer watch --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			useDefaultLogFile(cfg)
			svc, cleanup, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			roots := args
			if len(roots) == 0 {
				if cfg.Scan.SourceRoot == "" {
					return service.ErrNoSource
				}
				roots = []string{cfg.Scan.SourceRoot}
			}
			if !cmd.Flags().Changed("settle") {
				settle = time.Duration(cfg.Watch.SettleSeconds) * time.Second
			}

			w, err := watcher.New(
				watcher.WithSettleTime(settle),
				watcher.WithRecursive(cfg.Watch.Recursive),
				watcher.WithLogger(svc.Logger()),
			)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Watch(roots); err != nil {
				return fmt.Errorf("unable to watch directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %d directories (settle %s). Press Ctrl+C to stop.\n", len(roots), settle)
			if path := svc.Logger().FilePath(); path != "" {
				fmt.Fprintf(out, "Logging to %s\n", ui.Path(path))
			}
			if dryRun {
				fmt.Fprintf(out, "%s: no files will be moved\n", ui.Warning("DRY RUN"))
			}

			return w.Run(cmd.Context(), watchHandler(out, svc, dryRun))
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 30*time.Second, "quiet period before a file is organized (default from watch.settle_seconds)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print where files would go")
	return cmd
}

// watchHandler organizes one settled file and prints the outcome.
func watchHandler(out io.Writer, svc *service.Service, dryRun bool) watcher.Handler {
	logger := svc.Logger()

	return func(ctx context.Context, ev watcher.Event) {
		name := filepath.Base(ev.Path)
		if dryRun {
			results, err := svc.Scan(ctx, []string{ev.Path}, -1)
			if err != nil {
				logger.Error("watch", "Scan failed", err, logging.F("file", ev.Path))
				return
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s %s → %s\n", ui.Info("Would move:"), name, ui.Path(r.ProposedPath))
			}
			return
		}

		report, err := svc.Organize(ctx, ev.Path, ev.Root)
		if err != nil {
			logger.Error("watch", "Organize failed", err, logging.F("file", ev.Path))
			return
		}
		for _, m := range report.Moved {
			if !m.Associated {
				fmt.Fprintf(out, "%s %s → %s (batch %s)\n", ui.Success("Moved:"), filepath.Base(m.Src), ui.Path(m.Dest), shortID(report.BatchID))
			}
		}
		for _, e := range report.Errors {
			fmt.Fprintf(out, "%s %s: %s\n", ui.Error("Failed:"), filepath.Base(e.File), e.Error)
		}
	}
}
