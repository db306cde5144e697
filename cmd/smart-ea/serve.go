package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, dashboard and scheduled jobs",
	Long: `Serve starts the HTTP API (strategy, lot sizing, outcome updates, logs,
dashboard, websocket, health and metrics) together with the scheduler that
evaluates performance, retrains, re-optimizes and watches drawdown.

Example:
  smart-ea serve --config smart-ea.yaml`,
	RunE: runServe,
}

var shutdownGrace time.Duration

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 30*time.Second, "time allowed for graceful shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Logger.Info("Starting Smart EA in %s mode on port %d", a.Config.Environment, a.Config.API.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx, shutdownGrace); err != nil {
		return err
	}
	a.Logger.Info("Smart EA stopped")
	return nil
}
