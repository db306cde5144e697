package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

func TestCaptureAndRestore(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir)

	sel := strategy.NewSelector(nil)
	eng := risk.NewEngine(risk.DefaultConfig(), nil, nil)
	_, err := sel.SetWinRate(strategy.News, 0.2)
	require.NoError(t, err)
	eng.UpdateWinRate(0.8)
	eng.UpdateDrawdown(0.02)

	require.NoError(t, sp.Capture(sel, eng))
	assert.FileExists(t, sp.Path())
	assert.False(t, sp.LastSave().IsZero())

	sel2 := strategy.NewSelector(nil)
	eng2 := risk.NewEngine(risk.DefaultConfig(), nil, nil)
	assert.True(t, sp.Restore(sel2, eng2))

	assert.Equal(t, sel.Snapshot(), sel2.Snapshot())
	assert.Equal(t, eng.Snapshot(), eng2.Snapshot())

	rec, err := sel2.Get(strategy.News)
	require.NoError(t, err)
	assert.False(t, rec.Active)
}

func TestSaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir)
	require.NoError(t, sp.Save(Snapshot{Risk: risk.State{Lot: 0.01, MaxPositions: 5}}))
	require.NoError(t, sp.Save(Snapshot{Risk: risk.State{Lot: 0.02, MaxPositions: 5}}))

	assert.FileExists(t, filepath.Join(dir, backupFileName))
	snap, err := sp.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.02, snap.Risk.Lot)
	assert.Equal(t, Version, snap.Version)
}

func TestRestoreMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir)
	sel := strategy.NewSelector(nil)
	eng := risk.NewEngine(risk.DefaultConfig(), nil, nil)

	assert.False(t, sp.Restore(sel, eng))

	require.NoError(t, os.WriteFile(sp.Path(), []byte("{not json"), 0644))
	assert.False(t, sp.Restore(sel, eng))

	require.NoError(t, os.WriteFile(sp.Path(), []byte(`{"version":"1.0.0","strategies":[{"name":"martingale"}],"risk":{"lot":0.01,"max_positions":5}}`), 0644))
	assert.False(t, sp.Restore(sel, eng))
	assert.Equal(t, strategy.NewSelector(nil).Snapshot(), sel.Snapshot())
}

func TestRestoreRejectsInvalidRisk(t *testing.T) {
	sp := NewStatePersistence(nil, t.TempDir())
	require.NoError(t, sp.Save(Snapshot{Risk: risk.State{Lot: 0, MaxPositions: 0}}))

	eng := risk.NewEngine(risk.DefaultConfig(), nil, nil)
	before := eng.Snapshot()
	assert.False(t, sp.Restore(strategy.NewSelector(nil), eng))
	assert.Equal(t, before, eng.Snapshot())
}

type fixedClock struct{ last time.Time }

func (c *fixedClock) LastRetrain() time.Time     { return c.last }
func (c *fixedClock) SetLastRetrain(t time.Time) { c.last = t }

func TestRetrainClockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	last := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sel := strategy.NewSelector(nil)
	eng := risk.NewEngine(risk.DefaultConfig(), nil, nil)

	require.NoError(t, NewStatePersistence(nil, dir).WithRetrainClock(&fixedClock{last: last}).Capture(sel, eng))

	restored := &fixedClock{}
	sp := NewStatePersistence(nil, dir).WithRetrainClock(restored)
	assert.True(t, sp.Restore(strategy.NewSelector(nil), risk.NewEngine(risk.DefaultConfig(), nil, nil)))
	assert.True(t, last.Equal(restored.last))
}
