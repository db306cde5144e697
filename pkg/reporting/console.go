package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

// WriteConsole renders the report as a set of tables.
func WriteConsole(w io.Writer, r Report) {
	WriteStrategies(w, r.Strategies)
	fmt.Fprintln(w)
	WriteRisk(w, r.Risk)
	if len(r.Trades) > 0 {
		fmt.Fprintln(w)
		writeTradeSummary(w, r)
	}
	if len(r.Events) > 0 {
		fmt.Fprintln(w)
		WriteEvents(w, r.Events)
	}
}

// WriteStrategies renders the strategy records.
func WriteStrategies(w io.Writer, records []strategy.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("STRATEGIES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Strategy", "Active", "Win Rate", "Confidence"})

	for _, rec := range records {
		active := "no"
		if rec.Active {
			active = "yes"
		}
		t.AppendRow(table.Row{rec.Name, active, pct(rec.WinRate), fmt.Sprintf("%.3f", rec.Confidence)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignCenter},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// WriteRisk renders the risk state.
func WriteRisk(w io.Writer, st risk.State) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("RISK")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Lot", fmt.Sprintf("%.4f", st.Lot)},
		{"Max Positions", st.MaxPositions},
		{"Max Drawdown", pct(st.MaxDrawdown)},
		{"Current Drawdown", pct(st.CurrentDrawdown)},
		{"Win Rate", pct(st.WinRate)},
		{"Volatility", fmt.Sprintf("%.3f", st.Volatility)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 12, Align: text.AlignRight},
	})
	t.Render()
}

// WriteEvents renders journal events, oldest first.
func WriteEvents(w io.Writer, events []journal.Event) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("RECENT EVENTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Level", "Message"})

	for _, e := range events {
		t.AppendRow(table.Row{e.Timestamp.Format("2006-01-02 15:04:05"), string(e.Level), e.Message})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 19, Align: text.AlignLeft},
		{Number: 2, WidthMin: 8, Align: text.AlignCenter},
		{Number: 3, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
}

func writeTradeSummary(w io.Writer, r Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Strategy", "Trades", "Wins", "Profit"})

	byName := map[strategy.Name][2]int{}
	profit := map[strategy.Name]float64{}
	var order []strategy.Name
	for _, tr := range r.Trades {
		if _, ok := byName[tr.Strategy]; !ok {
			order = append(order, tr.Strategy)
		}
		c := byName[tr.Strategy]
		c[0]++
		if tr.Won() {
			c[1]++
		}
		byName[tr.Strategy] = c
		profit[tr.Strategy] += tr.Profit
	}
	for _, name := range order {
		c := byName[name]
		t.AppendRow(table.Row{name, c[0], c[1], fmt.Sprintf("%.2f", profit[name])})
	}
	t.AppendFooter(table.Row{"TOTAL", len(r.Trades), pct(r.WinRate()), fmt.Sprintf("%.2f", r.TotalProfit())})
	t.Render()
}

func pct(v float64) string {
	return strings.TrimSpace(fmt.Sprintf("%6.2f%%", v*100))
}
