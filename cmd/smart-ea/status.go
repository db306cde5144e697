package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/smart-ea/pkg/reporting"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print strategy, risk and journal tables",
	RunE:  runStatus,
}

var statusRecent int

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVarP(&statusRecent, "recent", "n", 10, "number of recent journal events to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := silentApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Report(context.Background(), statusRecent)
	if err != nil {
		return err
	}
	reporting.WriteConsole(cmd.OutOrStdout(), r)
	return nil
}
