package risk

// Config holds the static risk parameters.
type Config struct {
	InitialLot   float64 `json:"initial_lot" yaml:"initial_lot"`
	MaxPositions int     `json:"max_positions" yaml:"max_positions"`
	MaxDrawdown  float64 `json:"max_drawdown" yaml:"max_drawdown"` // fraction, e.g. 0.05

	// PauseRatio of MaxDrawdown above which sizing returns 0.
	PauseRatio float64 `json:"pause_ratio" yaml:"pause_ratio"`

	// MaxLot caps upward lot growth. Zero leaves growth unbounded.
	MaxLot float64 `json:"max_lot" yaml:"max_lot"`

	// VolatilityFallback is used when the volatility provider fails.
	VolatilityFallback float64 `json:"volatility_fallback" yaml:"volatility_fallback"`
}

// DefaultConfig returns the stock risk parameters.
func DefaultConfig() Config {
	return Config{
		InitialLot:         0.01,
		MaxPositions:       5,
		MaxDrawdown:        0.05,
		PauseRatio:         0.8,
		MaxLot:             0,
		VolatilityFallback: 0.5,
	}
}

// State is a consistent snapshot of the engine's mutable fields.
type State struct {
	Lot             float64 `json:"lot"`
	MaxPositions    int     `json:"max_positions"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	WinRate         float64 `json:"win_rate"`
	Volatility      float64 `json:"volatility"`
}

// Sizing is the outcome of a lot calculation. Paused distinguishes a
// deliberate zero from a computed one.
type Sizing struct {
	Lot          float64 `json:"lot"`
	Paused       bool    `json:"paused"`
	Reason       string  `json:"reason,omitempty"`
	AdjustedRisk float64 `json:"adjusted_risk"`
}
