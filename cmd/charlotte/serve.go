package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TickTockBent/charlotte/internal/browser"
)

// ServeCmd builds the serve command: loads config, starts the engine,
// and blocks until the process receives a shutdown signal. The outer
// JSON-RPC tool framing that reads from stdin and dispatches into this
// engine is the harness's concern, not this binary's.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser engine and wait for the harness to drive it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	logger := newLogger()

	path := configPath
	if path == "" {
		resolved, err := browser.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		path = resolved
	}

	raw, err := browser.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := browser.ResolveConfig(raw)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	engine, err := browser.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if _, err := engine.Manager().Pages(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	logger.Info("charlotte engine ready", "cdpPort", cfg.CDPPort, "headless", cfg.Headless)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	return engine.Close()
}
