package journal

import (
	"context"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

// Event is one structured journal entry.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     logger.LogLevel        `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Trade is a closed trade outcome.
type Trade struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Strategy  strategy.Name          `json:"strategy"`
	Profit    float64                `json:"profit"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Won reports whether the trade closed in profit.
func (t Trade) Won() bool { return t.Profit > 0 }

// Sink persists events and trades.
type Sink interface {
	WriteEvent(ctx context.Context, e Event) error
	WriteTrade(ctx context.Context, t Trade) error
	Close() error
}

// Reader reads back what a Sink stored. Events come back oldest first.
type Reader interface {
	RecentEvents(ctx context.Context, n int) ([]Event, error)
	Trades(ctx context.Context) ([]Trade, error)
}

// Forwarder receives ERROR and CRITICAL events after they are stored.
type Forwarder interface {
	Forward(ctx context.Context, e Event) error
}

// Subscriber is called for every event the journal accepts.
type Subscriber func(e Event)
