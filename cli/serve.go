package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/objectiveai/engine/config"
	"github.com/objectiveai/engine/daemon"
	"github.com/objectiveai/engine/server"
)

// NewServeCmd creates the "serve" subcommand, wiring the thin HTTP/SSE
// server package to config.FromEnv's ADDRESS/PORT, grounded on the
// teacher's cli/serve.go flag surface (host/port overriding the daemon's
// config-driven defaults).
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server exposing function and vector-completion runs",
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Listen host (overrides ADDRESS)")
	cmd.Flags().Int("port", 0, "Listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Address = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = fmt.Sprintf("%d", port)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}
	if cache := srv.Cache(); cache != nil {
		defer cache.Close()

		sweeper, err := daemon.NewSweeper(cache, cfg.CacheSweepCron)
		if err != nil {
			return exitError(exitRuntime, "starting cache sweeper: %v", err)
		}
		sweeper.Start(cmd.Context())
		defer sweeper.Stop()
	}

	addr := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)

	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		return exitError(exitRuntime, "serve: %v", err)
	}
	return nil
}
