package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/smart-ea/internal/logger"
)

type recordedAlert struct{ level, message string }

type fakeAlerter struct{ alerts []recordedAlert }

func (f *fakeAlerter) SendAlert(level, message string) error {
	f.alerts = append(f.alerts, recordedAlert{level, message})
	return nil
}

type fakeSink struct {
	levels []logger.LogLevel
	data   []map[string]interface{}
}

func (f *fakeSink) Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error {
	f.levels = append(f.levels, level)
	f.data = append(f.data, data)
	return nil
}

func TestOverseerCheckDrawdown(t *testing.T) {
	e := newEngine()
	alerter := &fakeAlerter{}
	sink := &fakeSink{}
	o := NewOverseer(e, 0, nil, alerter, sink)

	e.UpdateDrawdown(0.04)
	assert.False(t, o.CheckDrawdown(context.Background()))
	assert.Empty(t, alerter.alerts)
	assert.True(t, o.LastAlert().IsZero())

	e.UpdateDrawdown(0.045)
	assert.True(t, o.CheckDrawdown(context.Background()))
	if assert.Len(t, alerter.alerts, 1) {
		assert.Equal(t, "warning", alerter.alerts[0].level)
		assert.Contains(t, alerter.alerts[0].message, "4.50%")
	}
	if assert.Len(t, sink.levels, 1) {
		assert.Equal(t, logger.LogLevelWarning, sink.levels[0])
		assert.Equal(t, "Alert", sink.data[0]["entity_type"])
	}
	assert.False(t, o.LastAlert().IsZero())
}
