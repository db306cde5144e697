package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Strategy metrics
	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smart_ea_strategy_confidence",
			Help: "Strategy confidence level",
		},
		[]string{"strategy"},
	)

	strategyWinRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smart_ea_strategy_win_rate",
			Help: "Smoothed strategy win rate",
		},
		[]string{"strategy"},
	)

	strategyActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smart_ea_strategy_active",
			Help: "1 when the strategy is eligible for selection",
		},
		[]string{"strategy"},
	)

	selectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_selections_total",
			Help: "Total number of strategy recommendations",
		},
		[]string{"strategy"},
	)

	// Trade outcome metrics
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_outcomes_total",
			Help: "Total number of recorded trade outcomes",
		},
		[]string{"strategy", "result"},
	)

	tradeProfit = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smart_ea_trade_profit",
			Help:    "Distribution of recorded trade profits",
			Buckets: []float64{-100, -50, -10, -1, 0, 1, 10, 50, 100},
		},
		[]string{"strategy"},
	)

	// Risk metrics
	riskLot = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smart_ea_risk_lot",
		Help: "Current base lot size",
	})

	riskMaxPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smart_ea_risk_max_positions",
		Help: "Current concurrent position limit",
	})

	riskDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smart_ea_risk_drawdown",
		Help: "Current drawdown fraction",
	})

	riskVolatility = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smart_ea_risk_volatility",
		Help: "Last volatility reading",
	})

	// Reliability metrics
	providerFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_provider_fallbacks_total",
			Help: "Total number of provider calls answered by a fallback",
		},
		[]string{"provider", "category"},
	)

	journalFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_journal_fallbacks_total",
			Help: "Total number of journal writes diverted to the fallback file",
		},
		[]string{"kind"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_ea_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(strategyConfidence)
	prometheus.MustRegister(strategyWinRate)
	prometheus.MustRegister(strategyActive)
	prometheus.MustRegister(selectionsTotal)
	prometheus.MustRegister(outcomesTotal)
	prometheus.MustRegister(tradeProfit)
	prometheus.MustRegister(riskLot)
	prometheus.MustRegister(riskMaxPositions)
	prometheus.MustRegister(riskDrawdown)
	prometheus.MustRegister(riskVolatility)
	prometheus.MustRegister(providerFallbacks)
	prometheus.MustRegister(journalFallbacks)
	prometheus.MustRegister(jobRuns)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// UpdateStrategyConfidence updates the strategy confidence metric
func UpdateStrategyConfidence(strategy string, confidence float64) {
	strategyConfidence.WithLabelValues(strategy).Set(confidence)
}

// UpdateStrategyState updates win rate and activation for a strategy
func UpdateStrategyState(strategy string, winRate float64, active bool) {
	strategyWinRate.WithLabelValues(strategy).Set(winRate)
	v := 0.0
	if active {
		v = 1
	}
	strategyActive.WithLabelValues(strategy).Set(v)
}

// RecordSelection counts a recommendation
func RecordSelection(strategy string) {
	selectionsTotal.WithLabelValues(strategy).Inc()
}

// RecordOutcome records a trade outcome
func RecordOutcome(strategy string, won bool, profit float64) {
	result := "loss"
	if won {
		result = "win"
	}
	outcomesTotal.WithLabelValues(strategy, result).Inc()
	tradeProfit.WithLabelValues(strategy).Observe(profit)
}

// UpdateRiskState updates the risk gauges
func UpdateRiskState(lot float64, maxPositions int, drawdown, volatility float64) {
	riskLot.Set(lot)
	riskMaxPositions.Set(float64(maxPositions))
	riskDrawdown.Set(drawdown)
	riskVolatility.Set(volatility)
}

// RecordProviderFallback counts a provider call that resolved to its fallback
func RecordProviderFallback(provider, category string) {
	providerFallbacks.WithLabelValues(provider, category).Inc()
}

// RecordJournalFallback counts a journal write diverted to the fallback file
func RecordJournalFallback(kind string) {
	journalFallbacks.WithLabelValues(kind).Inc()
}

// RecordJobRun counts a scheduled job run
func RecordJobRun(job string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	jobRuns.WithLabelValues(job, status).Inc()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
