package reporting

import (
	"context"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

// Report is a point-in-time view of the advisor: strategy records, risk
// state and the recent journal.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Strategies  []strategy.Record `json:"strategies"`
	Risk        risk.State        `json:"risk"`
	Trades      []journal.Trade   `json:"trades"`
	Events      []journal.Event   `json:"events"`
}

// StrategySource yields the live strategy records.
type StrategySource interface {
	Snapshot() []strategy.Record
}

// RiskSource yields the live risk state.
type RiskSource interface {
	Snapshot() risk.State
}

// JournalReader is the subset of the event logger a report reads.
type JournalReader interface {
	Recent(ctx context.Context, n int) ([]journal.Event, error)
	Trades(ctx context.Context) ([]journal.Trade, error)
}

// Build assembles a report. A nil journal yields empty trade and event lists.
func Build(ctx context.Context, strategies StrategySource, engine RiskSource, j JournalReader, recent int) (Report, error) {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		Strategies:  strategies.Snapshot(),
		Risk:        engine.Snapshot(),
	}
	if j == nil {
		return r, nil
	}

	trades, err := j.Trades(ctx)
	if err != nil {
		return r, err
	}
	r.Trades = trades

	if recent > 0 {
		events, err := j.Recent(ctx, recent)
		if err != nil {
			return r, err
		}
		r.Events = events
	}
	return r, nil
}

// TotalProfit sums profit across the report's trades.
func (r Report) TotalProfit() float64 {
	var total float64
	for _, t := range r.Trades {
		total += t.Profit
	}
	return total
}

// WinRate is the share of winning trades, 0 when there are none.
func (r Report) WinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range r.Trades {
		if t.Won() {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Trades))
}
