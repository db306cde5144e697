package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/logger"
)

// DefaultAlertDrawdown is the drawdown above which the overseer raises an alert.
const DefaultAlertDrawdown = 0.04

// Alerter delivers out-of-band alerts.
type Alerter interface {
	SendAlert(level, message string) error
}

// EventSink records structured events.
type EventSink interface {
	Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error
}

// Overseer watches the engine's drawdown and raises alerts when it crosses
// the alert threshold.
type Overseer struct {
	engine    *Engine
	threshold float64
	logger    *logger.Logger
	alerter   Alerter
	events    EventSink

	mu        sync.Mutex
	lastAlert time.Time
}

// NewOverseer creates an overseer. alerter and events may be nil.
func NewOverseer(engine *Engine, threshold float64, log *logger.Logger, alerter Alerter, events EventSink) *Overseer {
	if threshold <= 0 {
		threshold = DefaultAlertDrawdown
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Overseer{
		engine:    engine,
		threshold: threshold,
		logger:    log,
		alerter:   alerter,
		events:    events,
	}
}

// CheckDrawdown raises an alert when drawdown exceeds the threshold and
// reports whether it did.
func (o *Overseer) CheckDrawdown(ctx context.Context) bool {
	if !o.engine.DrawdownAbove(o.threshold) {
		return false
	}
	st := o.engine.Snapshot()

	msg := fmt.Sprintf("Drawdown alert: %.2f%% exceeds %.2f%%", st.CurrentDrawdown*100, o.threshold*100)
	o.logger.Warning("%s", msg)
	o.mu.Lock()
	o.lastAlert = time.Now()
	o.mu.Unlock()

	if o.events != nil {
		data := map[string]interface{}{
			"entity_type":      "Alert",
			"current_drawdown": st.CurrentDrawdown,
			"threshold":        o.threshold,
			"lot":              st.Lot,
		}
		if err := o.events.Log(ctx, logger.LogLevelWarning, msg, data); err != nil {
			o.logger.LogError("record drawdown alert", err)
		}
	}
	if o.alerter != nil {
		if err := o.alerter.SendAlert("warning", msg); err != nil {
			o.logger.LogError("send drawdown alert", err)
		}
	}
	return true
}

// LastAlert returns when the last alert was raised.
func (o *Overseer) LastAlert() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastAlert
}
