package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/paths"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfgFile, verbose, noColor = "", false, false

	rootCmd := &cobra.Command{
		Use:   "renamer",
		Short: "Identify and organize movies, TV, books and audiobooks",
		Long: `renamer scans download folders, identifies each media file against TMDB,
Google Books and iTunes, and moves it into a tidy library layout.

Every executed batch is recorded and can be reverted with 'renamer undo'.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				ui.DisableColors()
			}
		},
	}

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "renamer" {
			printHeader(cmd.OutOrStdout())
		}
		originalHelpFunc(cmd, args)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/renamer/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "renamer %s\n", service.Version)
		},
	}
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger from [logging]. Without a log file, console
// output is limited to warnings unless --verbose is set.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	switch {
	case verbose:
		logger.SetLevel(logging.LevelDebug)
	case cfg.Logging.File == "" && logging.ParseLevel(cfg.Logging.Level) < logging.LevelWarn:
		logger.SetLevel(logging.LevelWarn)
	}
	return logger, nil
}

// openService loads config and builds the service. The returned cleanup
// closes the journal and the log file.
func openService() (*service.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return buildService(cfg)
}

func buildService(cfg *config.Config) (*service.Service, func(), error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.New(cfg, service.WithLogger(logger))
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	return svc, func() {
		svc.Close()
		logger.Close()
	}, nil
}

// useDefaultLogFile sends logs of long-running commands to the app log
// when no file is configured.
func useDefaultLogFile(cfg *config.Config) {
	if cfg.Logging.File != "" {
		return
	}
	if path, err := paths.LogPath(); err == nil {
		cfg.Logging.File = path
	}
}
