package advisor

import (
	"context"
	"fmt"
	"time"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/safety"
	"github.com/ducminhle1904/smart-ea/internal/sentiment"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
	"github.com/ducminhle1904/smart-ea/internal/volatility"
)

// Fallback values used when a provider cannot answer.
const (
	FallbackRegime    = regime.Ranging
	FallbackSentiment = sentiment.Neutral
)

// Journal is the subset of the event journal the advisor writes to.
type Journal interface {
	Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error
	LogTrade(ctx context.Context, name strategy.Name, profit float64, extra map[string]interface{}) (journal.Trade, error)
}

// HealthReporter receives liveness signals.
type HealthReporter interface {
	RecordDecision(strategy string)
	SetProviderDown(provider string, down bool)
}

// Providers are the signal sources. Nil entries are replaced by their
// fallback behavior.
type Providers struct {
	Regime     regime.Provider
	Sentiment  sentiment.Provider
	Graph      graph.Provider
	Volatility volatility.Provider
}

// Options configures an Advisor.
type Options struct {
	Guard   safety.GuardConfig
	Logger  *logger.Logger
	Journal Journal
	Health  HealthReporter
}

// Signals is one reading of every provider.
type Signals struct {
	Regime    regime.Label    `json:"regime"`
	Sentiment sentiment.Label `json:"sentiment"`
	Suitable  strategy.Name   `json:"suitable"`
	// Fallbacks names the providers that answered with their fallback.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Recommendation is the result of one selection round.
type Recommendation struct {
	Strategy   strategy.Name `json:"strategy"`
	Confidence float64       `json:"confidence"`
	Signals    Signals       `json:"signals"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Advisor gathers signals, asks the selector for a strategy, sizes positions
// through the risk engine and feeds trade outcomes back into both.
type Advisor struct {
	selector *strategy.Selector
	engine   *risk.Engine
	p        Providers

	regimeGuard    *safety.Guard
	sentimentGuard *safety.Guard
	graphGuard     *safety.Guard

	logger  *logger.Logger
	journal Journal
	health  HealthReporter
	now     func() time.Time
}

// New wires an Advisor. selector and engine are required.
func New(selector *strategy.Selector, engine *risk.Engine, p Providers, opts Options) *Advisor {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	if p.Regime == nil {
		p.Regime = regime.Static(FallbackRegime)
	}
	if p.Sentiment == nil {
		p.Sentiment = sentiment.Static(FallbackSentiment)
	}
	if p.Graph == nil {
		p.Graph = graph.DefaultStatic()
	}

	hook := FallbackRecorder(opts.Health)
	return &Advisor{
		selector:       selector,
		engine:         engine,
		p:              p,
		regimeGuard:    safety.NewGuard("regime", opts.Guard, log, hook),
		sentimentGuard: safety.NewGuard("sentiment", opts.Guard, log, hook),
		graphGuard:     safety.NewGuard("graph", opts.Guard, log, hook),
		logger:         log,
		journal:        opts.Journal,
		health:         opts.Health,
		now:            time.Now,
	}
}

// FallbackRecorder returns a guard hook that counts fallbacks and marks the
// provider down. health may be nil.
func FallbackRecorder(health HealthReporter) safety.FallbackHook {
	return func(provider string, err *boterrors.BotError) {
		monitoring.RecordProviderFallback(provider, string(err.Category))
		if health != nil {
			health.SetProviderDown(provider, true)
		}
	}
}

// Selector returns the underlying selector.
func (a *Advisor) Selector() *strategy.Selector { return a.selector }

// Engine returns the underlying risk engine.
func (a *Advisor) Engine() *risk.Engine { return a.engine }

// Gather reads every provider. It never fails: unavailable providers yield
// ranging, neutral and the static graph mapping.
func (a *Advisor) Gather(ctx context.Context) Signals {
	var s Signals
	var ok bool

	s.Regime, ok = safety.Fetch(ctx, a.regimeGuard, FallbackRegime, a.p.Regime.Regime)
	a.track("regime", ok, &s)
	if !s.Regime.Valid() {
		a.logger.Warning("regime provider returned %q, using %s", s.Regime, FallbackRegime)
		s.Regime = FallbackRegime
	}

	s.Sentiment, ok = safety.Fetch(ctx, a.sentimentGuard, FallbackSentiment, a.p.Sentiment.Sentiment)
	a.track("sentiment", ok, &s)
	if !s.Sentiment.Valid() {
		s.Sentiment = FallbackSentiment
	}

	reg := s.Regime
	fallbackSuitable, _ := graph.DefaultStatic().SuitableStrategy(ctx, reg)
	s.Suitable, ok = safety.Fetch(ctx, a.graphGuard, fallbackSuitable, func(ctx context.Context) (strategy.Name, error) {
		return a.p.Graph.SuitableStrategy(ctx, reg)
	})
	a.track("graph", ok, &s)
	if !s.Suitable.Valid() {
		a.logger.Warning("graph suggested unknown strategy %q, using %s", s.Suitable, fallbackSuitable)
		s.Suitable = fallbackSuitable
	}
	return s
}

func (a *Advisor) track(provider string, ok bool, s *Signals) {
	if !ok {
		s.Fallbacks = append(s.Fallbacks, provider)
		return
	}
	if a.health != nil {
		a.health.SetProviderDown(provider, false)
	}
}

// Recommend gathers signals and selects a strategy. Strategy is
// strategy.None when nothing qualifies.
func (a *Advisor) Recommend(ctx context.Context) (Recommendation, error) {
	sig := a.Gather(ctx)
	name, conf, err := a.selector.Recommend(sig.Regime, sig.Sentiment, sig.Suitable)
	if err != nil {
		return Recommendation{}, err
	}
	rec := Recommendation{
		Strategy:   name,
		Confidence: conf,
		Signals:    sig,
		Timestamp:  a.now().UTC(),
	}

	for _, r := range a.selector.Snapshot() {
		monitoring.UpdateStrategyConfidence(string(r.Name), r.Confidence)
	}
	monitoring.RecordSelection(string(name))
	if a.health != nil {
		a.health.RecordDecision(string(name))
	}

	a.logger.Info("selected %s (confidence %.4f) regime=%s sentiment=%s suitable=%s",
		name, conf, sig.Regime, sig.Sentiment, sig.Suitable)
	a.record(ctx, logger.LogLevelInfo, "Selected strategy", map[string]interface{}{
		"strategy":   string(name),
		"confidence": conf,
		"regime":     string(sig.Regime),
		"sentiment":  string(sig.Sentiment),
		"suitable":   string(sig.Suitable),
	})
	return rec, nil
}

// SizeLot refreshes volatility when a provider is configured, then sizes a
// position.
func (a *Advisor) SizeLot(ctx context.Context, balance, riskPerTrade, confidence float64) (risk.Sizing, error) {
	if a.p.Volatility != nil {
		a.engine.RefreshVolatility(ctx, a.p.Volatility)
	}
	s, err := a.engine.SizeLot(balance, riskPerTrade, confidence)
	if err != nil {
		return risk.Sizing{}, err
	}
	a.publishRisk()
	if s.Paused {
		a.logger.Warning("sizing paused: %s", s.Reason)
	}
	return s, nil
}

// RecordOutcome folds a trade result into the selector, passes the new win
// rate to the risk engine and journals the trade.
func (a *Advisor) RecordOutcome(ctx context.Context, name strategy.Name, won bool, profit float64) (strategy.Record, error) {
	rec, err := a.selector.UpdateOutcome(name, won)
	if err != nil {
		return strategy.Record{}, err
	}
	a.engine.UpdateWinRate(rec.WinRate)

	monitoring.RecordOutcome(string(name), won, profit)
	monitoring.UpdateStrategyState(string(name), rec.WinRate, rec.Active)
	a.publishRisk()

	if a.journal != nil {
		if profit == 0 {
			profit = outcomeProfit(won)
		}
		if _, err := a.journal.LogTrade(ctx, name, profit, map[string]interface{}{"won": won}); err != nil {
			a.logger.LogError("journal trade", err)
		}
	}
	return rec, nil
}

// outcomeProfit stands in for a profit figure when the caller only reports
// win or loss, so the recorded trade still classifies correctly.
func outcomeProfit(won bool) float64 {
	if won {
		return 1
	}
	return -1
}

// SetActive forces a strategy's eligibility and journals the change.
func (a *Advisor) SetActive(ctx context.Context, name strategy.Name, active bool) error {
	if err := a.selector.SetActive(name, active); err != nil {
		return err
	}
	rec, _ := a.selector.Get(name)
	monitoring.UpdateStrategyState(string(name), rec.WinRate, rec.Active)
	a.record(ctx, logger.LogLevelInfo, fmt.Sprintf("strategy %s active=%t", name, active), map[string]interface{}{
		"strategy": string(name),
		"active":   active,
	})
	return nil
}

// Status is a combined view of selector and risk state.
type Status struct {
	Strategies []strategy.Record   `json:"strategies"`
	Risk       risk.State          `json:"risk"`
	Providers  []safety.GuardStats `json:"providers"`
}

// Status returns the current selector records, risk state and provider
// breaker stats.
func (a *Advisor) Status() Status {
	return Status{
		Strategies: a.selector.Snapshot(),
		Risk:       a.engine.Snapshot(),
		Providers: []safety.GuardStats{
			a.regimeGuard.Stats(),
			a.sentimentGuard.Stats(),
			a.graphGuard.Stats(),
		},
	}
}

func (a *Advisor) publishRisk() {
	st := a.engine.Snapshot()
	monitoring.UpdateRiskState(st.Lot, st.MaxPositions, st.CurrentDrawdown, st.Volatility)
}

func (a *Advisor) record(ctx context.Context, level logger.LogLevel, msg string, data map[string]interface{}) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Log(ctx, level, msg, data); err != nil {
		a.logger.LogError("journal event", err)
	}
}
