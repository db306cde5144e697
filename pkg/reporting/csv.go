package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"
)

// WriteTradesCSV writes the report's trades to path. A .xlsx path is
// delegated to WriteXLSX.
func WriteTradesCSV(r Report, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteXLSX(r, path)
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ID", "Timestamp", "Strategy", "Profit", "Result"}); err != nil {
		return err
	}
	for _, t := range r.Trades {
		result := "LOSS"
		if t.Won() {
			result = "WIN"
		}
		if err := w.Write([]string{
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339),
			string(t.Strategy),
			strconv.FormatFloat(t.Profit, 'f', 2, 64),
			result,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
