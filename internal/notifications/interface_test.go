package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct{ levels []string }

func (r *recorder) SendAlert(level, message string) error {
	r.levels = append(r.levels, level)
	return nil
}

type budget int

func (b *budget) Allow() bool {
	if *b <= 0 {
		return false
	}
	*b--
	return true
}

func TestThrottledDropsOverBudget(t *testing.T) {
	rec := &recorder{}
	b := budget(1)
	var dropped []string
	n := Throttled{Notifier: rec, Limiter: &b, Dropped: func(level, message string) {
		dropped = append(dropped, message)
	}}

	assert.NoError(t, n.SendAlert("error", "first"))
	assert.NoError(t, n.SendAlert("error", "second"))
	assert.NoError(t, n.SendAlert("critical", "third"))

	assert.Equal(t, []string{"error", "critical"}, rec.levels)
	assert.Equal(t, []string{"second"}, dropped)
}
