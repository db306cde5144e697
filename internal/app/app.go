package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/advisor"
	"github.com/ducminhle1904/smart-ea/internal/api"
	"github.com/ducminhle1904/smart-ea/internal/config"
	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/modelloop"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/notifications"
	"github.com/ducminhle1904/smart-ea/internal/recovery"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/safety"
	"github.com/ducminhle1904/smart-ea/internal/scheduler"
	"github.com/ducminhle1904/smart-ea/internal/sentiment"
	"github.com/ducminhle1904/smart-ea/internal/state"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
	"github.com/ducminhle1904/smart-ea/internal/volatility"
	"github.com/ducminhle1904/smart-ea/pkg/reporting"
)

// App holds every long-lived component of a running advisor.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Health    *monitoring.HealthChecker
	Notifier  notifications.Notifier
	Events    *journal.EventLogger
	Selector  *strategy.Selector
	Engine    *risk.Engine
	Advisor   *advisor.Advisor
	Overseer  *risk.Overseer
	Loop      *modelloop.Loop
	Scheduler *scheduler.Scheduler
	Regimes   *regime.RegimeEventBus
	// State is nil when persistence is disabled.
	State *state.StatePersistence

	ownLogger bool
}

// New wires the components described by cfg. log may be nil, in which case
// a file logger is created from cfg.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg}
	if log == nil {
		var err error
		log, err = logger.NewLogger("smart-ea", logger.Options{
			Dir:      cfg.LogDir,
			Console:  cfg.LogConsole,
			MinLevel: logger.ParseLevel(cfg.LogLevel),
		})
		if err != nil {
			return nil, err
		}
		a.ownLogger = true
	}
	a.Logger = log
	a.Health = monitoring.NewHealthChecker()
	a.Notifier = a.newNotifier()

	client := &http.Client{Timeout: cfg.Providers.Timeout}

	var graphClient *graph.HTTPGraph
	if cfg.Providers.GraphURL != "" {
		graphClient = graph.NewHTTPGraph(cfg.Providers.GraphURL, client, nil)
	}

	a.Events = journal.NewEventLogger(journal.Options{
		Primary:      a.openPrimary(),
		FallbackPath: cfg.Journal.FallbackPath,
		Logger:       log,
		Forwarders:   forwarders(a.Notifier, graphClient),
		StatusHook:   a.Health.SetJournalOK,
	})

	guardCfg := safety.DefaultGuardConfig()
	guardCfg.Timeout = cfg.Providers.Timeout
	hook := advisor.FallbackRecorder(a.Health)

	a.Selector = strategy.NewSelector(log)
	a.Engine = risk.NewEngine(cfg.Risk, log, safety.NewGuard("volatility", guardCfg, log, hook))

	providers := a.providers(client, graphClient)
	a.Advisor = advisor.New(a.Selector, a.Engine, providers, advisor.Options{
		Guard:   guardCfg,
		Logger:  log,
		Journal: a.Events,
		Health:  a.Health,
	})

	a.Overseer = risk.NewOverseer(a.Engine, cfg.AlertDrawdown, log, a.Notifier, a.Events)

	loopOpts := modelloop.Options{
		Logger:       log,
		Events:       a.Events,
		RetrainEvery: cfg.RetrainEvery,
	}
	if graphClient != nil {
		loopOpts.Graph = graphClient
	}
	if cfg.Providers.HistoryURL != "" {
		loopOpts.History = modelloop.NewHTTPHistory(cfg.Providers.HistoryURL, client, 0)
	}
	a.Loop = modelloop.New(a.Selector, a.Engine, a.Events, loopOpts)

	if cfg.StateDir != "" {
		a.State = state.NewStatePersistence(log, cfg.StateDir).WithRetrainClock(a.Loop)
		a.State.Restore(a.Selector, a.Engine)
	}

	a.Scheduler = scheduler.New(log, a.Health).
		WithRecovery(recovery.NewRecoveryHandler(recovery.DefaultRetryConfig(), log))
	var entities journal.EntityCreator
	if graphClient != nil {
		entities = graphClient
	}
	for _, job := range scheduler.StandardJobs(a.Loop, a.Overseer, cfg.Schedule, a.Events, entities) {
		if err := a.Scheduler.Add(job); err != nil {
			return nil, err
		}
	}
	if a.State != nil {
		if err := a.Scheduler.Add(scheduler.Job{
			Name:  JobSaveState,
			Every: cfg.StateSaveEvery,
			Run: func(ctx context.Context) error {
				if err := a.State.Capture(a.Selector, a.Engine); err != nil {
					return boterrors.NewStorageError("state", "Capture", err)
				}
				return nil
			},
		}); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// JobSaveState periodically snapshots the selector and risk engine.
const JobSaveState = "save-state"

// openPrimary picks the journal's primary sink: PostgREST when configured,
// else SQLite. A SQLite open failure leaves the journal file-only.
func (a *App) openPrimary() journal.Sink {
	jc := a.Config.Journal
	if jc.PostgRESTURL != "" {
		a.Logger.Info("Journal primary: PostgREST at %s", jc.PostgRESTURL)
		return journal.NewPostgREST(jc.PostgRESTURL, jc.PostgRESTKey, &http.Client{Timeout: a.Config.Providers.Timeout})
	}
	if jc.DBPath == "" {
		a.Logger.Warning("No journal database configured, logging to %s only", jc.FallbackPath)
		return nil
	}
	db, err := journal.NewSQLite(jc.DBPath)
	if err != nil {
		a.Logger.LogError("open journal database", err)
		a.Health.SetJournalOK(false)
		return nil
	}
	a.Logger.Info("Journal primary: SQLite at %s", jc.DBPath)
	return db
}

func (a *App) providers(client *http.Client, g *graph.HTTPGraph) advisor.Providers {
	pc := a.Config.Providers
	var p advisor.Providers

	if pc.VolatilityURL != "" {
		vol := volatility.NewHTTPSource(pc.VolatilityURL, client)
		p.Volatility = vol
		a.Regimes = regime.NewRegimeEventBus()
		a.Regimes.Subscribe("journal", regime.RegimeCallbackFunc(a.recordRegimeChange))
		p.Regime = regime.NewVolatilityClassifier(vol, regime.Thresholds{
			HighVolatility: pc.RegimeHighVolatility,
			Trending:       pc.RegimeTrending,
		}, a.Regimes)
	}

	if pc.SentimentURL != "" && len(pc.NewsURLs) > 0 {
		src := sentiment.NewHTTPSource(sentiment.HTTPConfig{
			NewsURLs:   pc.NewsURLs,
			AnalyzeURL: pc.SentimentURL,
			APIKey:     pc.SentimentAPIKey,
			Model:      pc.SentimentModel,
		}, client, a.recordAnalysis)
		p.Sentiment = sentiment.NewCached(src, pc.SentimentCacheTTL)
	}

	if g != nil {
		p.Graph = g
	}
	return p
}

func (a *App) recordRegimeChange(change *regime.RegimeChange) error {
	msg := fmt.Sprintf("Regime changed: %s -> %s", change.OldRegime, change.NewRegime)
	return a.Events.Log(context.Background(), logger.LogLevelInfo, msg, map[string]interface{}{
		"entity_type": "RegimeChange",
		"old_regime":  string(change.OldRegime),
		"new_regime":  string(change.NewRegime),
		"volatility":  change.Volatility,
	})
}

func (a *App) recordAnalysis(ctx context.Context, an sentiment.Analysis, headlines string) {
	if err := a.Events.Log(ctx, logger.LogLevelInfo, "Sentiment analyzed: "+an.Sentiment, map[string]interface{}{
		"entity_type": "Sentiment",
		"reasoning":   an.Reasoning,
		"headlines":   headlines,
	}); err != nil {
		a.Logger.LogError("record sentiment analysis", err)
	}
}

// Alert budget: a burst of alertBurst, then one per alertRefill.
const (
	alertBurst  = 5
	alertRefill = time.Minute
)

func (a *App) newNotifier() notifications.Notifier {
	if !a.Config.TelegramEnabled() {
		return notifications.Nop{}
	}
	return notifications.Throttled{
		Notifier: notifications.NewTelegramNotifier(a.Config.Notifications.TelegramToken, a.Config.Notifications.TelegramChatID),
		Limiter:  safety.NewRateLimiter("telegram", alertBurst, alertRefill),
		Dropped: func(level, message string) {
			a.Logger.Warning("alert suppressed (%s): %s", level, message)
		},
	}
}

func forwarders(n notifications.Notifier, g *graph.HTTPGraph) []journal.Forwarder {
	fw := []journal.Forwarder{journal.AlertForwarder{Alerter: n}}
	if g != nil {
		fw = append(fw, journal.GraphForwarder{Graph: g})
	}
	return fw
}

// Server builds the HTTP API over the app's advisor and journal.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Advisor, a.Events, api.Options{
		Port:         a.Config.API.Port,
		Mode:         a.Config.API.Mode,
		RiskPerTrade: a.Config.RiskPerTrade,
		Logger:       a.Logger,
		Health:       a.Health,
	})
}

// Report snapshots the selector, engine and journal.
func (a *App) Report(ctx context.Context, recent int) (reporting.Report, error) {
	return reporting.Build(ctx, a.Selector, a.Engine, a.Events, recent)
}

// Serve runs the scheduler and the API until ctx is cancelled, then waits up
// to grace for both to stop.
func (a *App) Serve(ctx context.Context, grace time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan error, 1)
	go func() { schedDone <- a.Scheduler.Run(ctx) }()

	err := a.Server().Start(ctx)
	if err != nil {
		a.Logger.LogError("api server", err)
	}
	cancel()

	select {
	case serr := <-schedDone:
		if err == nil && serr != nil {
			err = serr
		}
	case <-time.After(grace):
		a.Logger.Warning("Scheduler did not stop within %s", grace)
	}
	return err
}

// Close saves state, then releases the journal and, if New created it, the
// logger.
func (a *App) Close() error {
	if a.State != nil {
		if err := a.State.Capture(a.Selector, a.Engine); err != nil {
			a.Logger.LogError("save state", err)
		}
	}
	err := a.Events.Close()
	if a.ownLogger {
		if lerr := a.Logger.Close(); err == nil {
			err = lerr
		}
	}
	return err
}
