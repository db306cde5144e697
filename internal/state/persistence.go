package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

const (
	// Version is written into every snapshot.
	Version = "1.0.0"

	stateFileName  = "smart_ea_state.json"
	backupFileName = "smart_ea_state_backup.json"
)

// Snapshot is the learned state that survives a restart.
type Snapshot struct {
	Version     string            `json:"version"`
	SavedAt     time.Time         `json:"saved_at"`
	Strategies  []strategy.Record `json:"strategies"`
	Risk        risk.State        `json:"risk"`
	LastRetrain time.Time         `json:"last_retrain"` // zero without a retrain clock
}

// RetrainClock is the model loop's record of its last full cycle.
type RetrainClock interface {
	LastRetrain() time.Time
	SetLastRetrain(t time.Time)
}

// StatePersistence saves and restores snapshots as JSON under a directory.
// The previous file is kept as a backup and writes go through a temp file.
type StatePersistence struct {
	logger   *logger.Logger
	stateDir string
	clock    RetrainClock

	mu       sync.Mutex
	lastSave time.Time
}

// NewStatePersistence creates a state persistence manager
func NewStatePersistence(log *logger.Logger, stateDir string) *StatePersistence {
	if log == nil {
		log = logger.Discard()
	}
	return &StatePersistence{logger: log, stateDir: stateDir}
}

// WithRetrainClock makes Capture and Restore carry the loop's last retrain
// time.
func (sp *StatePersistence) WithRetrainClock(c RetrainClock) *StatePersistence {
	sp.clock = c
	return sp
}

// Path returns the snapshot file path.
func (sp *StatePersistence) Path() string {
	return filepath.Join(sp.stateDir, stateFileName)
}

// LastSave returns when Save last succeeded.
func (sp *StatePersistence) LastSave() time.Time {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.lastSave
}

// Load reads the snapshot. A missing file yields (nil, nil).
func (sp *StatePersistence) Load() (*Snapshot, error) {
	data, err := os.ReadFile(sp.Path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("unsupported state version %q", snap.Version)
	}
	return &snap, nil
}

// Save writes snap, backing up the previous file first.
func (sp *StatePersistence) Save(snap Snapshot) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if err := os.MkdirAll(sp.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	snap.Version = Version
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	stateFile := sp.Path()
	if _, err := os.Stat(stateFile); err == nil {
		if err := copyFile(stateFile, filepath.Join(sp.stateDir, backupFileName)); err != nil {
			sp.logger.Warning("failed to back up state: %v", err)
		}
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	sp.lastSave = time.Now()
	sp.logger.Debug("state saved to %s", stateFile)
	return nil
}

// Capture saves the current selector records and risk state.
func (sp *StatePersistence) Capture(sel *strategy.Selector, eng *risk.Engine) error {
	snap := Snapshot{
		Strategies: sel.Snapshot(),
		Risk:       eng.Snapshot(),
	}
	if sp.clock != nil {
		snap.LastRetrain = sp.clock.LastRetrain()
	}
	return sp.Save(snap)
}

// Restore loads the snapshot into sel and eng. It reports false when there
// was nothing to restore. An unreadable or invalid snapshot is logged and
// ignored so the caller starts clean.
func (sp *StatePersistence) Restore(sel *strategy.Selector, eng *risk.Engine) bool {
	snap, err := sp.Load()
	if err != nil {
		sp.logger.Warning("ignoring saved state: %v", err)
		return false
	}
	if snap == nil {
		sp.logger.Info("No existing state file found, starting with clean state")
		return false
	}
	if err := sel.Restore(snap.Strategies); err != nil {
		sp.logger.Warning("ignoring saved strategies: %v", err)
		return false
	}
	if err := eng.Restore(snap.Risk); err != nil {
		sp.logger.Warning("ignoring saved risk state: %v", err)
		return false
	}
	if sp.clock != nil && !snap.LastRetrain.IsZero() {
		sp.clock.SetLastRetrain(snap.LastRetrain)
	}
	sp.logger.Info("State restored from %s (saved %s)", sp.Path(), snap.SavedAt.Format(time.RFC3339))
	return true
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
