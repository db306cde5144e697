package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/smart-ea/internal/config"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/notifications"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/scheduler"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Load()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.Journal.DBPath = filepath.Join(dir, "journal.db")
	cfg.Journal.FallbackPath = filepath.Join(dir, "fallback_logs.txt")
	cfg.Journal.PostgRESTURL = ""
	cfg.Providers.VolatilityURL = ""
	cfg.Providers.SentimentURL = ""
	cfg.Providers.GraphURL = ""
	cfg.Providers.HistoryURL = ""
	cfg.Notifications = config.NotificationsConfig{}
	cfg.StateDir = filepath.Join(dir, "state")
	return cfg
}

func TestNewWiresDefaults(t *testing.T) {
	a, err := New(testConfig(t), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, notifications.Nop{}, a.Notifier)
	assert.Nil(t, a.Regimes)

	var names []string
	for _, j := range a.Scheduler.Jobs() {
		names = append(names, j.Name)
	}
	assert.ElementsMatch(t, []string{
		scheduler.JobEvaluate, scheduler.JobRetrain, scheduler.JobReOptimize, scheduler.JobDrawdownCheck, JobSaveState,
	}, names)

	rec, err := a.Advisor.Recommend(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Strategy.Valid())
}

func TestOutcomesReachJournalAndReport(t *testing.T) {
	a, err := New(testConfig(t), logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	_, err = a.Advisor.RecordOutcome(ctx, strategy.Scalping, true, 25)
	require.NoError(t, err)
	_, err = a.Advisor.RecordOutcome(ctx, strategy.Breakout, false, -10)
	require.NoError(t, err)

	r, err := a.Report(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, r.Trades, 2)
	assert.Equal(t, 15.0, r.TotalProfit())
	assert.NotEmpty(t, r.Events)
	assert.Len(t, r.Strategies, len(strategy.Names))
}

func TestVolatilityFeedDrivesRegime(t *testing.T) {
	var vol atomic.Value
	vol.Store(0.8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"volatility": %v}`, vol.Load().(float64))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Providers.VolatilityURL = srv.URL
	a, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Regimes)

	ctx := context.Background()
	rec, err := a.Advisor.Recommend(ctx)
	require.NoError(t, err)
	assert.Equal(t, regime.HighVolatility, rec.Signals.Regime)

	vol.Store(0.5)
	rec, err = a.Advisor.Recommend(ctx)
	require.NoError(t, err)
	assert.Equal(t, regime.Trending, rec.Signals.Regime)

	events, err := a.Events.Recent(ctx, 20)
	require.NoError(t, err)
	found := false
	for _, e := range events {
		if e.Data["entity_type"] == "RegimeChange" {
			found = true
			assert.Equal(t, "trending", e.Data["new_regime"])
		}
	}
	assert.True(t, found, "regime change should be journaled")
}

func TestUnopenableDatabaseFallsBackToFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.DBPath = filepath.Join(t.TempDir(), "missing", "dir", "journal.db")
	a, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	_, err = a.Advisor.RecordOutcome(ctx, strategy.News, true, 5)
	require.NoError(t, err)

	trades, err := a.Events.Trades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.FileExists(t, cfg.Journal.FallbackPath)
}

func TestTelegramAlertsAreThrottled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifications = config.NotificationsConfig{TelegramToken: "tok", TelegramChatID: "1"}
	a, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, notifications.Throttled{}, a.Notifier)
}

func TestStateSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, logger.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err = a.Advisor.RecordOutcome(ctx, strategy.Reversal, false, -1)
		require.NoError(t, err)
	}
	want := a.Selector.Snapshot()
	wantRisk := a.Engine.Snapshot()
	require.NoError(t, a.Close())

	b, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, want, b.Selector.Snapshot())
	assert.Equal(t, wantRisk, b.Engine.Snapshot())
}
