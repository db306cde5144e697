package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Gather signals once and print the recommended strategy and lot",
	RunE:  runSelect,
}

var (
	selectBalance float64
	selectJSON    bool
)

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().Float64Var(&selectBalance, "balance", 10000, "account balance used for lot sizing")
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "print JSON")
}

func runSelect(cmd *cobra.Command, args []string) error {
	a, err := silentApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	rec, err := a.Advisor.Recommend(ctx)
	if err != nil {
		return err
	}
	sizing, err := a.Advisor.SizeLot(ctx, selectBalance, a.Config.RiskPerTrade, rec.Confidence)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if selectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"recommendation": rec,
			"sizing":         sizing,
		})
	}

	fmt.Fprintf(out, "Strategy:   %s\n", rec.Strategy)
	fmt.Fprintf(out, "Confidence: %.4f\n", rec.Confidence)
	fmt.Fprintf(out, "Regime:     %s\n", rec.Signals.Regime)
	fmt.Fprintf(out, "Sentiment:  %s\n", rec.Signals.Sentiment)
	fmt.Fprintf(out, "Suitable:   %s\n", rec.Signals.Suitable)
	if len(rec.Signals.Fallbacks) > 0 {
		fmt.Fprintf(out, "Fallbacks:  %v\n", rec.Signals.Fallbacks)
	}
	if sizing.Paused {
		fmt.Fprintf(out, "Lot:        paused (%s)\n", sizing.Reason)
	} else {
		fmt.Fprintf(out, "Lot:        %.4f\n", sizing.Lot)
	}
	return nil
}
