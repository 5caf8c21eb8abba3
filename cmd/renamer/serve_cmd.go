package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/api"
	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/service"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server for web front ends and scripts.

Examples:
  renamer serve                       # Listen on api.addr (127.0.0.1:8000)
  renamer serve --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			useDefaultLogFile(cfg)
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			path, err := configPath()
			if err != nil {
				return err
			}
			svc, err := service.New(cfg, service.WithLogger(logger))
			if err != nil {
				return err
			}
			reload := func(next *config.Config) (api.Backend, error) {
				s, err := service.New(next, service.WithLogger(logger))
				if err != nil {
					return nil, err
				}
				return s, nil
			}

			server := api.NewServer(svc,
				api.WithConfigEditing(path, reload),
				api.WithAllowedOrigins(cfg.API.AllowedOrigins),
				api.WithLogger(logger),
			)
			defer server.Close()

			if addr == "" {
				addr = cfg.API.Addr
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting renamer API server on %s\n", addr)
			fmt.Fprintln(out, "Endpoints:")
			fmt.Fprintln(out, "  GET  /api/v1/health     - Health check")
			fmt.Fprintln(out, "  GET  /api/v1/config     - Current configuration")
			fmt.Fprintln(out, "  PUT  /api/v1/config     - Set one configuration value")
			fmt.Fprintln(out, "  POST /api/v1/scan       - Identify files and propose paths")
			fmt.Fprintln(out, "  POST /api/v1/execute    - Move confirmed files")
			fmt.Fprintln(out, "  POST /api/v1/undo       - Revert the last batch")
			fmt.Fprintln(out, "  GET  /api/v1/history    - List undoable batches")
			fmt.Fprintln(out, "  GET  /api/v1/search     - Manual provider lookup")
			fmt.Fprintln(out, "  POST /api/v1/preview    - Proposed path for a candidate")

			return server.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from api.addr)")
	return cmd
}
