package strategy

import (
	"sync"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/sentiment"
)

const (
	baseScore        = 0.5
	suitableBonus    = 0.4
	regimeBonus      = 0.3
	sentimentBonus   = 0.2
	sentimentPenalty = 0.1

	// MinConfidence is the exclusive lower bound for a selectable strategy.
	MinConfidence = 0.5

	winRateDecay    = 0.9
	winRateStep     = 0.1
	deactivateBelow = 0.4
	activateAbove   = 0.6

	initialWinRate = 0.5
)

var regimeAffinity = map[regime.Label]Name{
	regime.HighVolatility: Scalping,
	regime.Trending:       TrendFollowing,
	regime.Ranging:        Reversal,
}

// Record is the mutable per-strategy state.
type Record struct {
	Name       Name    `json:"name"`
	Active     bool    `json:"active"`
	WinRate    float64 `json:"win_rate"`
	Confidence float64 `json:"confidence"`
}

// Selector ranks the fixed strategies and adapts their eligibility to
// realized outcomes. Safe for concurrent use.
type Selector struct {
	mu      sync.RWMutex
	records map[Name]*Record
	logger  *logger.Logger
}

// NewSelector creates a selector with every strategy active, win rate 0.5
// and zero confidence. log may be nil.
func NewSelector(log *logger.Logger) *Selector {
	if log == nil {
		log = logger.Discard()
	}
	s := &Selector{
		records: make(map[Name]*Record, len(Names)),
		logger:  log,
	}
	for _, n := range Names {
		s.records[n] = &Record{Name: n, Active: true, WinRate: initialWinRate}
	}
	return s
}

// Score returns the confidence of one strategy given the signals and its win
// rate. It is a pure function.
func Score(n Name, reg regime.Label, sent sentiment.Label, suitable Name, winRate float64) float64 {
	score := baseScore
	if n == suitable {
		score += suitableBonus
	}
	if regimeAffinity[reg] == n {
		score += regimeBonus
	}
	switch n {
	case Breakout:
		if sent == sentiment.Positive {
			score += sentimentBonus
		}
	case Reversal:
		if sent == sentiment.Negative {
			score += sentimentBonus
		}
	case News:
		if sent == sentiment.Positive {
			score += sentimentBonus
		} else if sent == sentiment.Negative {
			score -= sentimentPenalty
		}
	}
	return clamp01(score * winRate)
}

// ComputeConfidence scores every strategy and stores the result as its
// current confidence.
func (s *Selector) ComputeConfidence(reg regime.Label, sent sentiment.Label, suitable Name) (map[Name]float64, error) {
	if !suitable.Valid() {
		return nil, boterrors.NewInvalidStrategyError("selector", "ComputeConfidence", string(suitable))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Name]float64, len(Names))
	for _, n := range Names {
		r := s.records[n]
		r.Confidence = Score(n, reg, sent, suitable, r.WinRate)
		out[n] = r.Confidence
	}
	return out, nil
}

// Choose picks the active strategy with the highest confidence above
// MinConfidence. Ties go to the first strategy in declaration order. When
// nothing qualifies it returns (None, 0).
func Choose(confidences map[Name]float64, active map[Name]bool) (Name, float64) {
	best, bestConf := None, 0.0
	for _, n := range Names {
		c, ok := confidences[n]
		if !ok || !active[n] || c <= MinConfidence {
			continue
		}
		if best == None || c > bestConf {
			best, bestConf = n, c
		}
	}
	return best, bestConf
}

// Select applies Choose against the selector's current active set.
func (s *Selector) Select(confidences map[Name]float64) (Name, float64) {
	s.mu.RLock()
	active := make(map[Name]bool, len(s.records))
	for n, r := range s.records {
		active[n] = r.Active
	}
	s.mu.RUnlock()

	return Choose(confidences, active)
}

// Recommend computes confidences and selects in one atomic step.
func (s *Selector) Recommend(reg regime.Label, sent sentiment.Label, suitable Name) (Name, float64, error) {
	if !suitable.Valid() {
		return None, 0, boterrors.NewInvalidStrategyError("selector", "Recommend", string(suitable))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conf := make(map[Name]float64, len(Names))
	active := make(map[Name]bool, len(Names))
	for _, n := range Names {
		r := s.records[n]
		r.Confidence = Score(n, reg, sent, suitable, r.WinRate)
		conf[n] = r.Confidence
		active[n] = r.Active
	}
	best, c := Choose(conf, active)
	return best, c, nil
}

// UpdateOutcome folds one trade result into the strategy's win rate with an
// exponential moving average and toggles eligibility outside the [0.4, 0.6]
// band.
func (s *Selector) UpdateOutcome(n Name, won bool) (Record, error) {
	if !n.Valid() {
		return Record{}, boterrors.NewInvalidStrategyError("selector", "UpdateOutcome", string(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.records[n]
	step := 0.0
	if won {
		step = winRateStep
	}
	s.applyWinRate(r, r.WinRate*winRateDecay+step)
	return *r, nil
}

// SetWinRate overwrites a strategy's win rate, clamped to [0,1], with the
// same activation band as UpdateOutcome.
func (s *Selector) SetWinRate(n Name, rate float64) (Record, error) {
	if !n.Valid() {
		return Record{}, boterrors.NewInvalidStrategyError("selector", "SetWinRate", string(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.records[n]
	s.applyWinRate(r, rate)
	return *r, nil
}

// ReplaceWinRate overwrites a strategy's win rate, clamped to [0,1], and
// leaves its active flag alone.
func (s *Selector) ReplaceWinRate(n Name, rate float64) (Record, error) {
	if !n.Valid() {
		return Record{}, boterrors.NewInvalidStrategyError("selector", "ReplaceWinRate", string(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.records[n]
	r.WinRate = clamp01(rate)
	return *r, nil
}

func (s *Selector) applyWinRate(r *Record, rate float64) {
	r.WinRate = clamp01(rate)
	switch {
	case r.WinRate < deactivateBelow:
		if r.Active {
			s.logger.Warning("deactivated %s due to low win rate %.4f", r.Name, r.WinRate)
		}
		r.Active = false
	case r.WinRate > activateAbove:
		if !r.Active {
			s.logger.Info("activated %s due to high win rate %.4f", r.Name, r.WinRate)
		}
		r.Active = true
	}
}

// SetActive forces a strategy's eligibility.
func (s *Selector) SetActive(n Name, active bool) error {
	if !n.Valid() {
		return boterrors.NewInvalidStrategyError("selector", "SetActive", string(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[n].Active != active {
		s.logger.Info("strategy %s active=%t", n, active)
	}
	s.records[n].Active = active
	return nil
}

// Restore replaces records with previously saved ones. Win rates and
// confidences are clamped to [0,1]; strategies absent from records keep their
// current values. Nothing is applied if any name is unknown.
func (s *Selector) Restore(records []Record) error {
	for _, r := range records {
		if !r.Name.Valid() {
			return boterrors.NewInvalidStrategyError("selector", "Restore", string(r.Name))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		cur := s.records[r.Name]
		cur.Active = r.Active
		cur.WinRate = clamp01(r.WinRate)
		cur.Confidence = clamp01(r.Confidence)
	}
	return nil
}

// Get returns a copy of one strategy's record.
func (s *Selector) Get(n Name) (Record, error) {
	if !n.Valid() {
		return Record{}, boterrors.NewInvalidStrategyError("selector", "Get", string(n))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.records[n], nil
}

// Snapshot returns copies of all records in declaration order.
func (s *Selector) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(Names))
	for _, n := range Names {
		out = append(out, *s.records[n])
	}
	return out
}

// AverageWinRate returns the mean win rate across all strategies.
func (s *Selector) AverageWinRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0.0
	for _, n := range Names {
		sum += s.records[n].WinRate
	}
	return sum / float64(len(Names))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
