package regime

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/volatility"
)

// Thresholds splits the volatility axis into regimes.
type Thresholds struct {
	HighVolatility float64 `json:"high_volatility" yaml:"high_volatility"` // above: high_volatility
	Trending       float64 `json:"trending" yaml:"trending"`               // above: trending, else ranging
}

// DefaultThresholds returns the classic 0.7 / 0.4 split.
func DefaultThresholds() Thresholds {
	return Thresholds{HighVolatility: 0.7, Trending: 0.4}
}

// Classify maps a volatility reading to a regime.
func (t Thresholds) Classify(vol float64) Label {
	switch {
	case vol > t.HighVolatility:
		return HighVolatility
	case vol > t.Trending:
		return Trending
	default:
		return Ranging
	}
}

// VolatilityClassifier derives the regime from a volatility provider and
// publishes transitions on its event bus.
type VolatilityClassifier struct {
	source     volatility.Provider
	thresholds Thresholds
	bus        *RegimeEventBus

	mu      sync.Mutex
	current Label
}

// NewVolatilityClassifier creates a classifier. bus may be nil.
func NewVolatilityClassifier(source volatility.Provider, thresholds Thresholds, bus *RegimeEventBus) *VolatilityClassifier {
	return &VolatilityClassifier{source: source, thresholds: thresholds, bus: bus}
}

// Regime fetches volatility and classifies it.
func (c *VolatilityClassifier) Regime(ctx context.Context) (Label, error) {
	vol, err := c.source.Volatility(ctx)
	if err != nil {
		return "", err
	}
	label := c.thresholds.Classify(volatility.Clamp(vol))

	c.mu.Lock()
	old := c.current
	c.current = label
	c.mu.Unlock()

	if c.bus != nil && old != "" && old != label {
		_ = c.bus.PublishRegimeChange(&RegimeChange{
			Timestamp:  time.Now(),
			OldRegime:  old,
			NewRegime:  label,
			Volatility: vol,
		})
	}
	return label, nil
}

// Current returns the last classified regime, empty before the first call.
func (c *VolatilityClassifier) Current() Label {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Static always reports the same regime.
type Static Label

func (s Static) Regime(ctx context.Context) (Label, error) { return Label(s), nil }
