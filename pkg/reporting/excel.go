package reporting

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/smart-ea/internal/journal"
)

const (
	strategiesSheet = "Strategies"
	riskSheet       = "Risk"
	tradesSheet     = "Trades"
	eventsSheet     = "Events"
)

// ExcelStyles holds the style ids shared by every sheet.
type ExcelStyles struct {
	HeaderStyle  int
	PercentStyle int
	NumberStyle  int
	ProfitStyle  int
	LossStyle    int
	TextStyle    int
}

// WriteXLSX writes the report as a workbook with one sheet per section.
func WriteXLSX(r Report, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), strategiesSheet); err != nil {
		return err
	}
	for _, name := range []string{riskSheet, tradesSheet, eventsSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeStrategiesSheet(fx, r, styles); err != nil {
		return err
	}
	if err := writeRiskSheet(fx, r, styles); err != nil {
		return err
	}
	if err := writeTradesSheet(fx, r.Trades, styles); err != nil {
		return err
	}
	if err := writeEventsSheet(fx, r.Events, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	cellBorder := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// 10 is the built-in 0.00% format
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	// 4 is the built-in #,##0.00 format
	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.ProfitStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.LossStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    cellBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.TextStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", WrapText: true},
		Border:    cellBorder,
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, styles.HeaderStyle); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// setCell writes v to (col,row) and applies style when non-zero.
func setCell(fx *excelize.File, sheet string, col, row int, v interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, cell, v); err != nil {
		return err
	}
	if style == 0 {
		return nil
	}
	return fx.SetCellStyle(sheet, cell, cell, style)
}

func writeStrategiesSheet(fx *excelize.File, r Report, styles ExcelStyles) error {
	if err := writeHeader(fx, strategiesSheet, []string{"Strategy", "Active", "Win Rate", "Confidence"}, styles); err != nil {
		return err
	}
	for i, rec := range r.Strategies {
		row := i + 2
		if err := setCell(fx, strategiesSheet, 1, row, string(rec.Name), styles.TextStyle); err != nil {
			return err
		}
		if err := setCell(fx, strategiesSheet, 2, row, rec.Active, styles.TextStyle); err != nil {
			return err
		}
		if err := setCell(fx, strategiesSheet, 3, row, rec.WinRate, styles.PercentStyle); err != nil {
			return err
		}
		if err := setCell(fx, strategiesSheet, 4, row, rec.Confidence, styles.NumberStyle); err != nil {
			return err
		}
	}
	return fx.SetColWidth(strategiesSheet, "A", "D", 18)
}

func writeRiskSheet(fx *excelize.File, r Report, styles ExcelStyles) error {
	if err := writeHeader(fx, riskSheet, []string{"Metric", "Value"}, styles); err != nil {
		return err
	}
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Generated At", r.GeneratedAt.Format("2006-01-02 15:04:05"), styles.TextStyle},
		{"Lot", r.Risk.Lot, styles.NumberStyle},
		{"Max Positions", r.Risk.MaxPositions, styles.NumberStyle},
		{"Max Drawdown", r.Risk.MaxDrawdown, styles.PercentStyle},
		{"Current Drawdown", r.Risk.CurrentDrawdown, styles.PercentStyle},
		{"Win Rate", r.Risk.WinRate, styles.PercentStyle},
		{"Volatility", r.Risk.Volatility, styles.NumberStyle},
		{"Trades", len(r.Trades), styles.NumberStyle},
		{"Trade Win Rate", r.WinRate(), styles.PercentStyle},
		{"Total Profit", r.TotalProfit(), profitStyle(r.TotalProfit(), styles)},
	}
	for i, rr := range rows {
		row := i + 2
		if err := setCell(fx, riskSheet, 1, row, rr.label, styles.TextStyle); err != nil {
			return err
		}
		if err := setCell(fx, riskSheet, 2, row, rr.value, rr.style); err != nil {
			return err
		}
	}
	return fx.SetColWidth(riskSheet, "A", "B", 22)
}

func writeTradesSheet(fx *excelize.File, trades []journal.Trade, styles ExcelStyles) error {
	if err := writeHeader(fx, tradesSheet, []string{"ID", "Time", "Strategy", "Profit", "Result", "Cumulative"}, styles); err != nil {
		return err
	}

	sorted := make([]journal.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var cumulative float64
	for i, t := range sorted {
		row := i + 2
		cumulative += t.Profit
		result := "LOSS"
		if t.Won() {
			result = "WIN"
		}
		cells := []struct {
			v     interface{}
			style int
		}{
			{t.ID, styles.TextStyle},
			{t.Timestamp.Format("2006-01-02 15:04:05"), styles.TextStyle},
			{string(t.Strategy), styles.TextStyle},
			{t.Profit, profitStyle(t.Profit, styles)},
			{result, styles.TextStyle},
			{cumulative, profitStyle(cumulative, styles)},
		}
		for col, c := range cells {
			if err := setCell(fx, tradesSheet, col+1, row, c.v, c.style); err != nil {
				return err
			}
		}
	}
	if err := fx.SetColWidth(tradesSheet, "A", "A", 30); err != nil {
		return err
	}
	return fx.SetColWidth(tradesSheet, "B", "F", 18)
}

func writeEventsSheet(fx *excelize.File, events []journal.Event, styles ExcelStyles) error {
	if err := writeHeader(fx, eventsSheet, []string{"Time", "Level", "Message"}, styles); err != nil {
		return err
	}
	for i, e := range events {
		row := i + 2
		if err := setCell(fx, eventsSheet, 1, row, e.Timestamp.Format("2006-01-02 15:04:05"), styles.TextStyle); err != nil {
			return err
		}
		if err := setCell(fx, eventsSheet, 2, row, string(e.Level), styles.TextStyle); err != nil {
			return err
		}
		if err := setCell(fx, eventsSheet, 3, row, e.Message, styles.TextStyle); err != nil {
			return err
		}
	}
	if err := fx.SetColWidth(eventsSheet, "A", "B", 20); err != nil {
		return err
	}
	return fx.SetColWidth(eventsSheet, "C", "C", 80)
}

func profitStyle(v float64, styles ExcelStyles) int {
	if v >= 0 {
		return styles.ProfitStyle
	}
	return styles.LossStyle
}
