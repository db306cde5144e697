package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/safety"
	"github.com/ducminhle1904/smart-ea/internal/sentiment"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
	"github.com/ducminhle1904/smart-ea/internal/volatility"
)

type fakeJournal struct {
	mu       sync.Mutex
	messages []string
	trades   []journal.Trade
}

func (f *fakeJournal) Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeJournal) LogTrade(ctx context.Context, name strategy.Name, profit float64, extra map[string]interface{}) (journal.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := journal.Trade{Strategy: name, Profit: profit, Extra: extra}
	f.trades = append(f.trades, t)
	return t, nil
}

type fakeHealth struct {
	mu        sync.Mutex
	decisions []string
	down      map[string]bool
}

func (f *fakeHealth) RecordDecision(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, s)
}

func (f *fakeHealth) SetProviderDown(p string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down == nil {
		f.down = map[string]bool{}
	}
	f.down[p] = down
}

type failingRegime struct{}

func (failingRegime) Regime(ctx context.Context) (regime.Label, error) {
	return "", errors.New("feed down")
}

type slowSentiment struct{}

func (slowSentiment) Sentiment(ctx context.Context) (sentiment.Label, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type badGraph struct{}

func (badGraph) SuitableStrategy(ctx context.Context, r regime.Label) (strategy.Name, error) {
	return strategy.Name("martingale"), nil
}

func fastGuard() safety.GuardConfig {
	cfg := safety.DefaultGuardConfig()
	cfg.Timeout = 20 * time.Millisecond
	return cfg
}

func newAdvisor(p Providers, j Journal, h HealthReporter) *Advisor {
	return New(strategy.NewSelector(nil), risk.NewEngine(risk.DefaultConfig(), nil, nil), p,
		Options{Guard: fastGuard(), Journal: j, Health: h})
}

func TestRecommendTrendingPositive(t *testing.T) {
	j := &fakeJournal{}
	h := &fakeHealth{}
	a := newAdvisor(Providers{
		Regime:    regime.Static(regime.Trending),
		Sentiment: sentiment.Static(sentiment.Positive),
		Graph:     graph.DefaultStatic(),
	}, j, h)

	rec, err := a.Recommend(context.Background())
	require.NoError(t, err)

	// breakout: (0.5+0.4+0.2)*0.5 = 0.55, trend_following: (0.5+0.3)*0.5 = 0.40
	assert.Equal(t, strategy.Breakout, rec.Strategy)
	assert.InDelta(t, 0.55, rec.Confidence, 1e-9)
	assert.Equal(t, strategy.Breakout, rec.Signals.Suitable)
	assert.Empty(t, rec.Signals.Fallbacks)
	assert.Equal(t, []string{"Selected strategy"}, j.messages)
	assert.Equal(t, []string{"breakout"}, h.decisions)
}

func TestGatherUsesFallbacks(t *testing.T) {
	h := &fakeHealth{}
	a := newAdvisor(Providers{
		Regime:    failingRegime{},
		Sentiment: slowSentiment{},
		Graph:     badGraph{},
	}, nil, h)

	sig := a.Gather(context.Background())
	assert.Equal(t, regime.Ranging, sig.Regime)
	assert.Equal(t, sentiment.Neutral, sig.Sentiment)
	assert.Equal(t, strategy.Reversal, sig.Suitable)
	assert.Equal(t, []string{"regime", "sentiment"}, sig.Fallbacks)
	assert.True(t, h.down["regime"])
	assert.True(t, h.down["sentiment"])
	assert.False(t, h.down["graph"])
}

func TestRecommendWithDefaultsNeverFails(t *testing.T) {
	a := newAdvisor(Providers{}, nil, nil)
	rec, err := a.Recommend(context.Background())
	require.NoError(t, err)
	// ranging + neutral + reversal suitable: reversal (0.5+0.4+0.3)*0.5 = 0.6
	assert.Equal(t, strategy.Reversal, rec.Strategy)
	assert.InDelta(t, 0.6, rec.Confidence, 1e-9)
}

func TestSizeLotRefreshesVolatility(t *testing.T) {
	a := newAdvisor(Providers{
		Volatility: volatility.ProviderFunc(func(ctx context.Context) (float64, error) { return 0.5, nil }),
	}, nil, nil)

	s, err := a.SizeLot(context.Background(), 1000, risk.DefaultRiskPerTrade, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.005, s.Lot, 1e-12)
	assert.Equal(t, 0.5, a.Engine().Snapshot().Volatility)

	_, err = a.SizeLot(context.Background(), 0, risk.DefaultRiskPerTrade, 1)
	assert.ErrorIs(t, err, boterrors.ErrInvalidBalance)
}

func TestSizeLotPaused(t *testing.T) {
	a := newAdvisor(Providers{}, nil, nil)
	a.Engine().UpdateDrawdown(0.045)

	s, err := a.SizeLot(context.Background(), 10000, risk.DefaultRiskPerTrade, 1)
	require.NoError(t, err)
	assert.True(t, s.Paused)
	assert.Equal(t, 0.0, s.Lot)
}

func TestRecordOutcomeFeedsRiskAndJournal(t *testing.T) {
	j := &fakeJournal{}
	a := newAdvisor(Providers{}, j, nil)

	rec, err := a.RecordOutcome(context.Background(), strategy.Scalping, false, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, rec.WinRate, 1e-12)
	assert.True(t, rec.Active)

	st := a.Engine().Snapshot()
	assert.InDelta(t, 0.45, st.WinRate, 1e-12)
	assert.InDelta(t, 0.008, st.Lot, 1e-12)
	assert.Equal(t, 4, st.MaxPositions)

	require.Len(t, j.trades, 1)
	assert.Equal(t, -1.0, j.trades[0].Profit)

	_, err = a.RecordOutcome(context.Background(), strategy.Name("grid"), true, 0)
	assert.ErrorIs(t, err, boterrors.ErrInvalidStrategy)
	assert.Len(t, j.trades, 1)
}

func TestSetActive(t *testing.T) {
	j := &fakeJournal{}
	a := newAdvisor(Providers{}, j, nil)

	require.NoError(t, a.SetActive(context.Background(), strategy.News, false))
	rec, err := a.Selector().Get(strategy.News)
	require.NoError(t, err)
	assert.False(t, rec.Active)
	assert.Len(t, j.messages, 1)

	assert.ErrorIs(t, a.SetActive(context.Background(), strategy.Name("x"), true), boterrors.ErrInvalidStrategy)
}

func TestStatus(t *testing.T) {
	a := newAdvisor(Providers{}, nil, nil)
	st := a.Status()
	assert.Len(t, st.Strategies, len(strategy.Names))
	assert.Equal(t, 0.01, st.Risk.Lot)

	var names []string
	for _, p := range st.Providers {
		names = append(names, p.Provider)
		assert.Equal(t, safety.StateClosed, p.Breaker.State)
	}
	assert.Equal(t, []string{"regime", "sentiment", "graph"}, names)
}
