package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scheduled model jobs without the HTTP API",
	Long: `Schedule runs the evaluation, retraining, re-optimization and drawdown
jobs on their configured intervals. With --once the named job runs a single
time and the command exits.

Example:
  smart-ea schedule --once evaluate`,
	RunE: runSchedule,
}

var onceJob string

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&onceJob, "once", "", "run the named job once and exit")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if onceJob != "" {
		if err := a.Scheduler.RunNow(ctx, onceJob); err != nil {
			return fmt.Errorf("job %s: %w", onceJob, err)
		}
		return nil
	}
	return a.Scheduler.Run(ctx)
}
