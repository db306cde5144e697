package modelloop

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

const (
	DefaultInitialBalance = 10000.0
	DefaultRetrainEvery   = 48 * time.Hour

	neutralWinRate  = 0.5
	disableBelow    = 0.4
	simWinRateMin   = 0.4
	simWinRateMax   = 0.8
	simDrawdownMax  = 0.1
	retrainRateMin  = 0.5
	retrainRateMax  = 0.7
	trendBias       = 0.1
	retrainLotMin   = 0.01
	retrainLotMax   = 0.05
	optimizeLotBase = 0.05
	optimizeLotMin  = 0.01
)

// TradeSource supplies recorded trades, oldest first.
type TradeSource interface {
	Trades(ctx context.Context) ([]journal.Trade, error)
}

// EventSink records structured events.
type EventSink interface {
	Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error
}

// Options configures a Loop. Every field is optional.
type Options struct {
	Logger         *logger.Logger
	Events         EventSink
	Graph          journal.EntityCreator
	History        HistorySource
	Rand           *rand.Rand
	Now            func() time.Time
	InitialBalance float64
	RetrainEvery   time.Duration
}

// Evaluation is the outcome of one performance evaluation.
type Evaluation struct {
	WinRates  map[strategy.Name]float64 `json:"win_rates"`
	Drawdown  float64                   `json:"drawdown"`
	Trades    int                       `json:"trades"`
	Simulated bool                      `json:"simulated"`
	Disabled  []strategy.Name           `json:"disabled,omitempty"`
}

// Loop periodically re-derives strategy win rates and risk parameters.
type Loop struct {
	selector *strategy.Selector
	engine   *risk.Engine
	trades   TradeSource

	logger         *logger.Logger
	events         EventSink
	graph          journal.EntityCreator
	history        HistorySource
	now            func() time.Time
	initialBalance float64
	retrainEvery   time.Duration

	mu          sync.Mutex
	rng         *rand.Rand
	lastRetrain time.Time
}

// New creates a loop over selector and engine. trades may be nil, in which
// case evaluation always simulates.
func New(selector *strategy.Selector, engine *risk.Engine, trades TradeSource, opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = DefaultInitialBalance
	}
	if opts.RetrainEvery <= 0 {
		opts.RetrainEvery = DefaultRetrainEvery
	}
	return &Loop{
		selector:       selector,
		engine:         engine,
		trades:         trades,
		logger:         opts.Logger,
		events:         opts.Events,
		graph:          opts.Graph,
		history:        opts.History,
		now:            opts.Now,
		initialBalance: opts.InitialBalance,
		retrainEvery:   opts.RetrainEvery,
		rng:            opts.Rand,
		lastRetrain:    opts.Now(),
	}
}

// LastRetrain returns when CheckAndRetrain last ran the full cycle.
func (l *Loop) LastRetrain() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastRetrain
}

// EvaluatePerformance derives per-strategy win rates and max drawdown from
// recorded trades and feeds them into the selector and risk engine. With no
// trades it simulates both.
func (l *Loop) EvaluatePerformance(ctx context.Context) (Evaluation, error) {
	var trades []journal.Trade
	if l.trades != nil {
		t, err := l.trades.Trades(ctx)
		if err != nil {
			l.logger.Warning("fetch trades failed, simulating performance: %v", err)
		} else {
			trades = t
		}
	}

	ev := Evaluation{Trades: len(trades)}
	if len(trades) > 0 {
		ev.WinRates = WinRates(trades)
		ev.Drawdown = MaxDrawdown(trades, l.initialBalance)
	} else {
		ev.Simulated = true
		ev.WinRates, ev.Drawdown = l.simulate()
	}

	l.engine.UpdateDrawdown(ev.Drawdown)
	for _, n := range strategy.Names {
		rate := ev.WinRates[n]
		if _, err := l.selector.UpdateOutcome(n, rate > neutralWinRate); err != nil {
			return ev, err
		}
		l.engine.UpdateWinRate(rate)
		if rate < disableBelow {
			if err := l.selector.SetActive(n, false); err != nil {
				return ev, err
			}
			ev.Disabled = append(ev.Disabled, n)
		}
	}
	l.publish()

	l.logger.Info("performance evaluated: trades=%d drawdown=%.4f simulated=%t disabled=%v",
		ev.Trades, ev.Drawdown, ev.Simulated, ev.Disabled)
	l.record(ctx, "Performance evaluated", "Evaluation", map[string]interface{}{
		"trades":    ev.Trades,
		"drawdown":  ev.Drawdown,
		"simulated": ev.Simulated,
		"win_rates": rateMap(ev.WinRates),
	})
	return ev, nil
}

func (l *Loop) simulate() (map[strategy.Name]float64, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rates := make(map[strategy.Name]float64, len(strategy.Names))
	for _, n := range strategy.Names {
		rates[n] = simWinRateMin + l.rng.Float64()*(simWinRateMax-simWinRateMin)
	}
	return rates, l.rng.Float64() * simDrawdownMax
}

// WinRates returns wins/trades per strategy. Strategies without trades get
// 0.5.
func WinRates(trades []journal.Trade) map[strategy.Name]float64 {
	wins := make(map[strategy.Name]int)
	total := make(map[strategy.Name]int)
	for _, t := range trades {
		total[t.Strategy]++
		if t.Won() {
			wins[t.Strategy]++
		}
	}

	out := make(map[strategy.Name]float64, len(strategy.Names))
	for _, n := range strategy.Names {
		if total[n] == 0 {
			out[n] = neutralWinRate
			continue
		}
		out[n] = float64(wins[n]) / float64(total[n])
	}
	return out
}

// MaxDrawdown replays trades in time order over a starting balance and
// returns the largest peak-to-trough fraction.
func MaxDrawdown(trades []journal.Trade, initialBalance float64) float64 {
	sorted := make([]journal.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	balance, peak, maxDD := initialBalance, initialBalance, 0.0
	for _, t := range sorted {
		balance += t.Profit
		peak = math.Max(peak, balance)
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-balance)/peak)
		}
	}
	return maxDD
}

// RetrainResult is what a retrain pass produced.
type RetrainResult struct {
	WinRates  map[strategy.Name]float64 `json:"win_rates"`
	Lot       float64                   `json:"lot"`
	TrendBias float64                   `json:"trend_bias"`
}

// Retrain re-seeds win rates around a historical prior and draws a new lot.
// Active flags are left as evaluation set them.
func (l *Loop) Retrain(ctx context.Context) (RetrainResult, error) {
	res := RetrainResult{WinRates: make(map[strategy.Name]float64, len(strategy.Names))}

	if l.history != nil {
		h, err := l.history.History(ctx)
		if err != nil {
			l.logger.Warning("historical data unavailable: %v", err)
		} else if strings.Contains(strings.ToLower(h), "trending") {
			res.TrendBias = trendBias
		}
	}

	l.mu.Lock()
	for _, n := range strategy.Names {
		res.WinRates[n] = retrainRateMin + l.rng.Float64()*(retrainRateMax-retrainRateMin) + res.TrendBias
	}
	res.Lot = retrainLotMin + l.rng.Float64()*(retrainLotMax-retrainLotMin)
	l.mu.Unlock()

	for _, n := range strategy.Names {
		rec, err := l.selector.ReplaceWinRate(n, res.WinRates[n])
		if err != nil {
			return res, err
		}
		res.WinRates[n] = rec.WinRate
	}
	if err := l.engine.SetLot(res.Lot); err != nil {
		return res, err
	}
	l.publish()

	l.logger.Info("model retrained: lot=%.4f trend_bias=%.2f", res.Lot, res.TrendBias)
	l.record(ctx, "Model retrained", "ModelUpdate", map[string]interface{}{
		"lot":        res.Lot,
		"trend_bias": res.TrendBias,
		"win_rates":  rateMap(res.WinRates),
	})
	l.entity(ctx, "Retrained", "ModelUpdate", fmt.Sprintf("Win rates: %v", rateMap(res.WinRates)))
	return res, nil
}

// ReOptimize sets lot = max(0.01, 0.05 * average win rate) and returns it.
func (l *Loop) ReOptimize(ctx context.Context) (float64, error) {
	avg := l.selector.AverageWinRate()
	lot := math.Max(optimizeLotMin, optimizeLotBase*avg)
	if err := l.engine.SetLot(lot); err != nil {
		return 0, err
	}
	l.publish()

	l.logger.Info("parameters re-optimized: avg_win_rate=%.4f lot=%.4f", avg, lot)
	l.record(ctx, "Parameters re-optimized", "OptimizationUpdate", map[string]interface{}{
		"average_win_rate": avg,
		"lot":              lot,
	})
	l.entity(ctx, "Optimized", "OptimizationUpdate",
		fmt.Sprintf("Average win rate: %.4f, New lot: %.4f", avg, lot))
	return lot, nil
}

// SetLastRetrain records when the last full cycle ran, e.g. from saved state.
func (l *Loop) SetLastRetrain(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastRetrain = t
}

// CheckAndRetrain runs the full cycle when more than the retrain interval has
// passed since the last one. It reports whether the cycle ran.
func (l *Loop) CheckAndRetrain(ctx context.Context, now time.Time) (bool, error) {
	l.mu.Lock()
	due := now.Sub(l.lastRetrain) > l.retrainEvery
	l.mu.Unlock()
	if !due {
		return false, nil
	}
	if err := l.RunCycle(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}

// RunCycle evaluates performance, retrains and re-optimizes, then marks now
// as the last retrain time.
func (l *Loop) RunCycle(ctx context.Context, now time.Time) error {
	if _, err := l.EvaluatePerformance(ctx); err != nil {
		return fmt.Errorf("evaluate performance: %w", err)
	}
	if _, err := l.Retrain(ctx); err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	if _, err := l.ReOptimize(ctx); err != nil {
		return fmt.Errorf("re-optimize: %w", err)
	}

	l.mu.Lock()
	l.lastRetrain = now
	l.mu.Unlock()
	return nil
}

// NextRetrain returns when CheckAndRetrain will next run the cycle.
func (l *Loop) NextRetrain() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastRetrain.Add(l.retrainEvery)
}

func (l *Loop) publish() {
	for _, r := range l.selector.Snapshot() {
		monitoring.UpdateStrategyState(string(r.Name), r.WinRate, r.Active)
	}
	st := l.engine.Snapshot()
	monitoring.UpdateRiskState(st.Lot, st.MaxPositions, st.CurrentDrawdown, st.Volatility)
}

func (l *Loop) record(ctx context.Context, msg, entityType string, data map[string]interface{}) {
	if l.events == nil {
		return
	}
	data["entity_type"] = entityType
	if err := l.events.Log(ctx, logger.LogLevelInfo, msg, data); err != nil {
		l.logger.LogError("journal "+entityType, err)
	}
}

func (l *Loop) entity(ctx context.Context, prefix, entityType, observation string) {
	if l.graph == nil {
		return
	}
	e := graph.Entity{
		Name:         fmt.Sprintf("%s_%d", prefix, l.now().Unix()),
		EntityType:   entityType,
		Observations: []string{observation},
	}
	if err := l.graph.CreateEntities(ctx, []graph.Entity{e}); err != nil {
		l.logger.Warning("graph %s update failed: %v", entityType, err)
	}
}

func rateMap(m map[strategy.Name]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
