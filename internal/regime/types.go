package regime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Label is the categorical market condition.
type Label string

const (
	HighVolatility Label = "high_volatility"
	Trending       Label = "trending"
	Ranging        Label = "ranging"
)

// Labels lists every regime in declaration order.
var Labels = []Label{HighVolatility, Trending, Ranging}

// Valid reports whether l is one of the known regimes.
func (l Label) Valid() bool {
	switch l {
	case HighVolatility, Trending, Ranging:
		return true
	}
	return false
}

// Parse maps a string to a Label.
func Parse(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown regime %q", s)
	}
	return l, nil
}

// Provider reports the current market regime.
type Provider interface {
	Regime(ctx context.Context) (Label, error)
}

// RegimeChange represents a regime transition event
type RegimeChange struct {
	Timestamp  time.Time `json:"timestamp"`
	OldRegime  Label     `json:"old_regime"`
	NewRegime  Label     `json:"new_regime"`
	Volatility float64   `json:"volatility"` // reading that triggered the change
}

// RegimeCallback defines the interface for regime change notifications
type RegimeCallback interface {
	OnRegimeChange(change *RegimeChange) error
}

// RegimeCallbackFunc adapts a function to RegimeCallback.
type RegimeCallbackFunc func(change *RegimeChange) error

func (f RegimeCallbackFunc) OnRegimeChange(change *RegimeChange) error { return f(change) }

// RegimeEventBus manages regime change notifications
type RegimeEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]RegimeCallback
}

// NewRegimeEventBus creates a new event bus for regime notifications
func NewRegimeEventBus() *RegimeEventBus {
	return &RegimeEventBus{
		subscribers: make(map[string]RegimeCallback),
	}
}

// Subscribe adds a new subscriber for regime changes
func (bus *RegimeEventBus) Subscribe(id string, callback RegimeCallback) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers[id] = callback
}

// Unsubscribe removes a subscriber
func (bus *RegimeEventBus) Unsubscribe(id string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.subscribers, id)
}

// PublishRegimeChange notifies all subscribers synchronously and returns the
// first subscriber error, after every subscriber has been called.
func (bus *RegimeEventBus) PublishRegimeChange(change *RegimeChange) error {
	bus.mu.RLock()
	subs := make([]RegimeCallback, 0, len(bus.subscribers))
	for _, cb := range bus.subscribers {
		subs = append(subs, cb)
	}
	bus.mu.RUnlock()

	var first error
	for _, cb := range subs {
		if err := cb.OnRegimeChange(change); err != nil && first == nil {
			first = err
		}
	}
	return first
}
