package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage renamer configuration",
		Long: `Commands for managing renamer configuration.

The config file is stored at: ~/.config/renamer/config.toml
Environment variables such as TMDB_API_KEY and DEST_DIR override it.

Examples:
  renamer config init                        # Create default config file
  renamer config show                        # Display current configuration
  renamer config set TMDB_API_KEY abc123     # Set one value
  renamer config set scan.concurrency 8
  renamer config path                        # Show config file path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().SaveTo(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created config file: %s\n", ui.Success("✓"), path)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. renamer config set TMDB_API_KEY <key>")
			fmt.Fprintln(out, "  2. renamer config set DEST_DIR <library root>")
			fmt.Fprintln(out, "  3. renamer health")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration (API keys masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, redacted)
			}

			path, _ := configPath()
			fmt.Fprintf(out, "%s %s\n\n", ui.Dim("# Config file:"), path)
			body, err := toml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = out.Write(body)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Long: `Set a configuration value and save the file.

Keys are dotted paths (scan.min_video_size_mb, providers.tmdb.api_key) or
the environment variable names (TMDB_API_KEY, DEST_DIR, SOURCE_DIR,
MIN_VIDEO_SIZE_MB, IGNORE_SAMPLES, MOVIE_TEMPLATE, TV_TEMPLATE,
BOOK_TEMPLATE, AUDIOBOOK_TEMPLATE).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := config.Set(path, args[0], args[1]); err != nil {
				return err
			}

			value := args[1]
			if isSecretKey(args[0]) {
				value = config.MaskSecret(value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s = %s\n", ui.Success("✓"), args[0], value)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "api_key")
}
