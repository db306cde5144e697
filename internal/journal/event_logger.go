package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/monitoring"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
	"github.com/ducminhle1904/smart-ea/pkg/id"
)

// Options configures an EventLogger.
type Options struct {
	// Primary is the preferred sink. When nil every write goes to the
	// fallback file.
	Primary Sink
	// FallbackPath is the JSON-lines file used when Primary fails.
	FallbackPath string
	Logger       *logger.Logger
	Forwarders   []Forwarder
	// StatusHook is told whether the last primary write succeeded.
	StatusHook func(ok bool)
}

// EventLogger records events and trades to a primary sink and diverts them
// to a local file when the primary is unavailable.
type EventLogger struct {
	primary    Sink
	fallback   *fallbackFile
	logger     *logger.Logger
	forwarders []Forwarder
	statusHook func(ok bool)
	now        func() time.Time

	mu     sync.RWMutex
	subs   map[int]Subscriber
	nextID int
}

func NewEventLogger(opts Options) *EventLogger {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &EventLogger{
		primary:    opts.Primary,
		fallback:   newFallbackFile(opts.FallbackPath),
		logger:     log,
		forwarders: opts.Forwarders,
		statusHook: opts.StatusHook,
		now:        time.Now,
		subs:       make(map[int]Subscriber),
	}
}

// FallbackPath returns the path of the fallback file.
func (l *EventLogger) FallbackPath() string { return l.fallback.path }

// Subscribe registers fn for every accepted event and returns a function
// that removes it.
func (l *EventLogger) Subscribe(fn Subscriber) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.nextID
	l.nextID++
	l.subs[key] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, key)
	}
}

// Log records an event. It only fails when both the primary sink and the
// fallback file reject the write.
func (l *EventLogger) Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error {
	ts := l.now()
	e := Event{
		ID:        id.At(ts),
		Timestamp: ts.UTC(),
		Level:     level,
		Message:   message,
		Data:      data,
	}

	var primaryErr error
	if l.primary != nil {
		primaryErr = l.primary.WriteEvent(ctx, e)
		l.reportStatus(primaryErr == nil)
	}
	if l.primary == nil || primaryErr != nil {
		if err := l.divert(fallbackRecord{Kind: kindEvent, Event: &e}, primaryErr); err != nil {
			return err
		}
	}

	l.publish(e)
	if level == logger.LogLevelError || level == logger.LogLevelCritical {
		l.forward(ctx, e)
	}
	return nil
}

// LogTrade records a closed trade and emits an INFO event describing it.
func (l *EventLogger) LogTrade(ctx context.Context, name strategy.Name, profit float64, extra map[string]interface{}) (Trade, error) {
	if !name.Valid() {
		return Trade{}, boterrors.NewInvalidStrategyError("journal", "LogTrade", string(name))
	}
	ts := l.now()
	t := Trade{
		ID:        id.At(ts),
		Timestamp: ts.UTC(),
		Strategy:  name,
		Profit:    profit,
		Extra:     extra,
	}

	var primaryErr error
	if l.primary != nil {
		primaryErr = l.primary.WriteTrade(ctx, t)
		l.reportStatus(primaryErr == nil)
	}
	if l.primary == nil || primaryErr != nil {
		if err := l.divert(fallbackRecord{Kind: kindTrade, Trade: &t}, primaryErr); err != nil {
			return Trade{}, err
		}
	}

	data := map[string]interface{}{
		"entity_type": "Trade",
		"trade_id":    t.ID,
		"strategy":    string(name),
		"profit":      profit,
	}
	for k, v := range extra {
		if _, taken := data[k]; !taken {
			data[k] = v
		}
	}
	if err := l.Log(ctx, logger.LogLevelInfo, fmt.Sprintf("trade closed: %s %.2f", name, profit), data); err != nil {
		l.logger.LogError("journal trade event", err)
	}
	return t, nil
}

// Recent returns up to n most recent events, oldest first.
func (l *EventLogger) Recent(ctx context.Context, n int) ([]Event, error) {
	if r, ok := l.primary.(Reader); ok {
		events, err := r.RecentEvents(ctx, n)
		if err == nil {
			return events, nil
		}
		l.logger.Warning("journal primary read failed, reading fallback file: %v", err)
	}

	recs, err := l.fallback.read()
	if err != nil {
		return nil, err
	}
	var events []Event
	for _, rec := range recs {
		if rec.Kind == kindEvent && rec.Event != nil {
			events = append(events, *rec.Event)
		}
	}
	if n >= 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

// Trades returns every recorded trade, oldest first.
func (l *EventLogger) Trades(ctx context.Context) ([]Trade, error) {
	if r, ok := l.primary.(Reader); ok {
		trades, err := r.Trades(ctx)
		if err == nil {
			return trades, nil
		}
		l.logger.Warning("journal primary read failed, reading fallback file: %v", err)
	}

	recs, err := l.fallback.read()
	if err != nil {
		return nil, err
	}
	var trades []Trade
	for _, rec := range recs {
		if rec.Kind == kindTrade && rec.Trade != nil {
			trades = append(trades, *rec.Trade)
		}
	}
	return trades, nil
}

// Close closes the primary sink.
func (l *EventLogger) Close() error {
	if l.primary == nil {
		return nil
	}
	return l.primary.Close()
}

func (l *EventLogger) divert(rec fallbackRecord, primaryErr error) error {
	if primaryErr != nil {
		rec.PrimaryError = primaryErr.Error()
		l.logger.LogError("journal primary sink", primaryErr)
		monitoring.RecordJournalFallback(rec.Kind)
	}
	if err := l.fallback.append(rec); err != nil {
		monitoring.RecordError("journal")
		if primaryErr != nil {
			return fmt.Errorf("journal write failed: primary: %v; fallback: %w", primaryErr, err)
		}
		return err
	}
	return nil
}

func (l *EventLogger) reportStatus(ok bool) {
	if l.statusHook != nil {
		l.statusHook(ok)
	}
}

func (l *EventLogger) publish(e Event) {
	l.mu.RLock()
	subs := make([]Subscriber, 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

func (l *EventLogger) forward(ctx context.Context, e Event) {
	for _, f := range l.forwarders {
		if err := f.Forward(ctx, e); err != nil {
			l.logger.Warning("journal forward failed: %v", err)
		}
	}
}
