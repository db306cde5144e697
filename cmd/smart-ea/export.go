package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/smart-ea/pkg/reporting"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export strategies, risk state and the trade journal",
	Long: `Export writes the current report as an Excel workbook (.xlsx) or the
trade journal as CSV (.csv), chosen by the output extension.

Example:
  smart-ea export -o reports/today.xlsx`,
	RunE: runExport,
}

var (
	exportPath   string
	exportRecent int
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (.xlsx or .csv), default reports/smart_ea_<time>.xlsx")
	exportCmd.Flags().IntVar(&exportRecent, "recent", 200, "number of recent journal events to include")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := silentApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Report(context.Background(), exportRecent)
	if err != nil {
		return err
	}

	path := exportPath
	if path == "" {
		path = reporting.DefaultOutputPath("xlsx", time.Now())
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = reporting.WriteTradesCSV(r, path)
	case ".xlsx":
		err = reporting.WriteXLSX(r, path)
	default:
		return fmt.Errorf("unsupported export format %q, use .xlsx or .csv", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trades to %s\n", len(r.Trades), path)
	return nil
}
