package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

type stubJournal struct {
	events []journal.Event
	trades []journal.Trade
	err    error
}

func (s stubJournal) Recent(ctx context.Context, n int) ([]journal.Event, error) {
	return s.events, s.err
}

func (s stubJournal) Trades(ctx context.Context) ([]journal.Trade, error) {
	return s.trades, s.err
}

func sampleReport() Report {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return Report{
		GeneratedAt: base,
		Strategies: []strategy.Record{
			{Name: strategy.Scalping, Active: true, WinRate: 0.6, Confidence: 0.8},
			{Name: strategy.Breakout, Active: false, WinRate: 0.3, Confidence: 0.2},
		},
		Risk: risk.State{Lot: 0.01, MaxPositions: 5, MaxDrawdown: 0.05, CurrentDrawdown: 0.01, WinRate: 0.5},
		Trades: []journal.Trade{
			{ID: "t2", Timestamp: base.Add(time.Hour), Strategy: strategy.Breakout, Profit: -20},
			{ID: "t1", Timestamp: base, Strategy: strategy.Scalping, Profit: 50},
		},
		Events: []journal.Event{
			{ID: "e1", Timestamp: base, Level: logger.LogLevelInfo, Message: "Selected strategy"},
		},
	}
}

func TestBuild(t *testing.T) {
	sel := strategy.NewSelector(nil)
	eng := risk.NewEngine(risk.DefaultConfig(), nil, nil)
	r := sampleReport()

	got, err := Build(context.Background(), sel, eng, stubJournal{events: r.Events, trades: r.Trades}, 10)
	require.NoError(t, err)
	assert.Len(t, got.Strategies, len(strategy.Names))
	assert.Equal(t, eng.Snapshot(), got.Risk)
	assert.Len(t, got.Trades, 2)
	assert.Len(t, got.Events, 1)

	got, err = Build(context.Background(), sel, eng, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got.Trades)

	_, err = Build(context.Background(), sel, eng, stubJournal{err: errors.New("db down")}, 10)
	assert.Error(t, err)
}

func TestReportAggregates(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 30.0, r.TotalProfit())
	assert.Equal(t, 0.5, r.WinRate())
	assert.Equal(t, 0.0, Report{}.WinRate())
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	WriteConsole(&buf, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "STRATEGIES")
	assert.Contains(t, out, "scalping")
	assert.Contains(t, out, "60.00%")
	assert.Contains(t, out, "RISK")
	assert.Contains(t, out, "TRADES")
	assert.Contains(t, out, "30.00")
	assert.Contains(t, out, "Selected strategy")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, WriteXLSX(sampleReport(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{strategiesSheet, riskSheet, tradesSheet, eventsSheet}, fx.GetSheetList())

	rows, err := fx.GetRows(strategiesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Strategy", rows[0][0])
	assert.Equal(t, "scalping", rows[1][0])

	trades, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "t1", trades[1][0])
	assert.Equal(t, "WIN", trades[1][4])
	assert.Equal(t, "t2", trades[2][0])
	assert.Equal(t, "LOSS", trades[2][4])
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleReport(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Timestamp", "Strategy", "Profit", "Result"}, records[0])
	assert.Equal(t, "t2", records[1][0])
	assert.Equal(t, "-20.00", records[1][3])
	assert.Equal(t, "LOSS", records[1][4])
}

func TestDefaultOutputPath(t *testing.T) {
	p := DefaultOutputPath("xlsx", time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, filepath.Join("reports", "smart_ea_20240301_090500.xlsx"), p)
}
