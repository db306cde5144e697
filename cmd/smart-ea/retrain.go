package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Run the evaluate, retrain and re-optimize cycle if it is due",
	Long: `Retrain runs performance evaluation, retraining and re-optimization as
one cycle when the retrain interval has elapsed since the last cycle. The
last cycle time is kept in the saved state, so the interval spans restarts.

Example:
  smart-ea retrain --force`,
	RunE: runRetrain,
}

var retrainForce bool

func init() {
	rootCmd.AddCommand(retrainCmd)
	retrainCmd.Flags().BoolVar(&retrainForce, "force", false, "run the cycle even if it is not due")
}

func runRetrain(cmd *cobra.Command, args []string) error {
	a, err := silentApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	now := time.Now()
	if retrainForce {
		if err := a.Loop.RunCycle(ctx, now); err != nil {
			return err
		}
		fmt.Fprintln(out, "Retrain cycle completed")
		return nil
	}

	ran, err := a.Loop.CheckAndRetrain(ctx, now)
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintf(out, "Retrain not due until %s\n", a.Loop.NextRetrain().Format(time.RFC3339))
		return nil
	}
	fmt.Fprintln(out, "Retrain cycle completed")
	return nil
}
