package risk

import (
	"context"
	"fmt"
	"math"
	"sync"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/safety"
	"github.com/ducminhle1904/smart-ea/internal/volatility"
)

const (
	lowWinRate  = 0.5
	highWinRate = 0.7
	shrinkLot   = 0.8
	growLot     = 1.2

	lowConfidence    = 0.5
	highConfidence   = 0.8
	confidenceShrink = 0.7
	confidenceGrow   = 1.1

	// lotScale converts balance*risk into lots.
	lotScale = 1000.0

	DefaultRiskPerTrade = 0.01
)

// Engine turns win-rate, drawdown and volatility feedback into a bounded
// position size and gates new positions. Safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	cfg   Config
	state State

	logger *logger.Logger
	guard  *safety.Guard
}

// NewEngine creates an engine from cfg. Invalid fields fall back to
// DefaultConfig values. guard wraps volatility refreshes; nil installs a
// default one.
func NewEngine(cfg Config, log *logger.Logger, guard *safety.Guard) *Engine {
	def := DefaultConfig()
	if cfg.InitialLot <= 0 {
		cfg.InitialLot = def.InitialLot
	}
	if cfg.MaxPositions < 1 {
		cfg.MaxPositions = def.MaxPositions
	}
	if cfg.MaxDrawdown <= 0 || cfg.MaxDrawdown >= 1 {
		cfg.MaxDrawdown = def.MaxDrawdown
	}
	if cfg.PauseRatio <= 0 {
		cfg.PauseRatio = def.PauseRatio
	}
	if cfg.MaxLot < 0 {
		cfg.MaxLot = 0
	}
	cfg.VolatilityFallback = volatility.Clamp(cfg.VolatilityFallback)

	if log == nil {
		log = logger.Discard()
	}
	if guard == nil {
		guard = safety.NewGuard("volatility", safety.DefaultGuardConfig(), log, nil)
	}

	return &Engine{
		cfg: cfg,
		state: State{
			Lot:          cfg.InitialLot,
			MaxPositions: cfg.MaxPositions,
			MaxDrawdown:  cfg.MaxDrawdown,
			WinRate:      0.5,
		},
		logger: log,
		guard:  guard,
	}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateWinRate stores rate and shrinks or grows exposure: below 0.5 the lot
// shrinks by 20% and one position slot is removed (floor 1); above 0.7 the
// lot grows by 20% and a slot is added.
func (e *Engine) UpdateWinRate(rate float64) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.WinRate = volatility.Clamp(rate)
	switch {
	case rate < lowWinRate:
		e.state.Lot *= shrinkLot
		if e.state.MaxPositions > 1 {
			e.state.MaxPositions--
		}
	case rate > highWinRate:
		e.state.Lot = e.capped(e.state.Lot * growLot)
		e.state.MaxPositions++
	}
	return e.state
}

// IntegrateConfidence nudges the lot by signal confidence: below 0.5 it
// shrinks by 30%, above 0.8 it grows by 10%.
func (e *Engine) IntegrateConfidence(confidence float64) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case confidence < lowConfidence:
		e.state.Lot *= confidenceShrink
	case confidence > highConfidence:
		e.state.Lot = e.capped(e.state.Lot * confidenceGrow)
	}
	return e.state
}

func (e *Engine) capped(lot float64) float64 {
	if e.cfg.MaxLot > 0 && lot > e.cfg.MaxLot {
		return e.cfg.MaxLot
	}
	return lot
}

// UpdateDrawdown stores the current drawdown, clamped to [0,1].
func (e *Engine) UpdateDrawdown(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.CurrentDrawdown = volatility.Clamp(value)
}

// SetLot overwrites the lot, e.g. after re-optimization.
func (e *Engine) SetLot(lot float64) error {
	if lot <= 0 || math.IsNaN(lot) || math.IsInf(lot, 0) {
		return boterrors.NewValidationError("risk", "SetLot", fmt.Sprintf("lot must be positive, got %v", lot))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Lot = e.capped(lot)
	return nil
}

// SetVolatility stores a volatility reading, clamped to [0,1].
func (e *Engine) SetVolatility(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Volatility = volatility.Clamp(v)
}

// RefreshVolatility fetches volatility from source. On failure or timeout it
// stores the configured fallback; the second result is false in that case.
func (e *Engine) RefreshVolatility(ctx context.Context, source volatility.Provider) (float64, bool) {
	fallback := e.Config().VolatilityFallback
	v, ok := safety.Fetch(ctx, e.guard, fallback, source.Volatility)
	if !ok {
		e.logger.Warning("volatility refresh failed, using fallback %.4f", fallback)
	}
	e.SetVolatility(v)
	return volatility.Clamp(v), ok
}

// SizeLot computes a position size. Trading is paused (Lot 0) when drawdown
// exceeds PauseRatio*MaxDrawdown. Otherwise the size is
// min(lot, balance*riskPerTrade*(1-volatility)*confidence/1000).
func (e *Engine) SizeLot(balance, riskPerTrade, confidence float64) (Sizing, error) {
	if balance <= 0 || math.IsNaN(balance) {
		return Sizing{}, boterrors.NewInvalidBalanceError("risk", "CalculateLot", balance)
	}
	if riskPerTrade < 0 || math.IsNaN(riskPerTrade) {
		return Sizing{}, boterrors.NewValidationError("risk", "CalculateLot",
			fmt.Sprintf("risk per trade must be non-negative, got %v", riskPerTrade))
	}
	if confidence < 0 || math.IsNaN(confidence) {
		return Sizing{}, boterrors.NewValidationError("risk", "CalculateLot",
			fmt.Sprintf("confidence must be non-negative, got %v", confidence))
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	limit := e.state.MaxDrawdown * e.cfg.PauseRatio
	if e.state.CurrentDrawdown > limit {
		return Sizing{
			Paused: true,
			Reason: fmt.Sprintf("drawdown %.4f exceeds %.4f", e.state.CurrentDrawdown, limit),
		}, nil
	}

	adjusted := riskPerTrade * (1 - e.state.Volatility) * confidence
	return Sizing{
		Lot:          math.Min(e.state.Lot, balance*adjusted/lotScale),
		AdjustedRisk: adjusted,
	}, nil
}

// CalculateLot is SizeLot reduced to the lot value; 0 means paused.
func (e *Engine) CalculateLot(balance, riskPerTrade, confidence float64) (float64, error) {
	s, err := e.SizeLot(balance, riskPerTrade, confidence)
	if err != nil {
		return 0, err
	}
	return s.Lot, nil
}

// CanOpenPosition reports whether another position fits under the limit.
func (e *Engine) CanOpenPosition(currentOpen int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return currentOpen < e.state.MaxPositions
}

// DrawdownAbove reports whether the current drawdown exceeds threshold.
func (e *Engine) DrawdownAbove(threshold float64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.CurrentDrawdown > threshold
}

// Restore loads previously saved state. MaxDrawdown always comes from the
// engine's config and the lot is re-capped by MaxLot.
func (e *Engine) Restore(st State) error {
	if st.Lot <= 0 || st.MaxPositions < 1 {
		return boterrors.NewValidationError("risk", "Restore",
			fmt.Sprintf("invalid saved state: lot=%v max_positions=%d", st.Lot, st.MaxPositions))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = State{
		Lot:             e.capped(st.Lot),
		MaxPositions:    st.MaxPositions,
		MaxDrawdown:     e.cfg.MaxDrawdown,
		CurrentDrawdown: volatility.Clamp(st.CurrentDrawdown),
		WinRate:         math.Min(1, math.Max(0, st.WinRate)),
		Volatility:      volatility.Clamp(st.Volatility),
	}
	return nil
}

// Snapshot returns a consistent copy of the mutable state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}
