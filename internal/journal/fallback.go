package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFallbackPath is where events land when the primary sink fails.
const DefaultFallbackPath = "fallback_logs.txt"

const (
	kindEvent = "event"
	kindTrade = "trade"
)

// fallbackRecord is one JSON line in the fallback file.
type fallbackRecord struct {
	Kind         string `json:"kind"`
	Event        *Event `json:"event,omitempty"`
	Trade        *Trade `json:"trade,omitempty"`
	PrimaryError string `json:"primary_error,omitempty"`
}

// fallbackFile appends JSON lines to a local file.
type fallbackFile struct {
	mu   sync.Mutex
	path string
}

func newFallbackFile(path string) *fallbackFile {
	if path == "" {
		path = DefaultFallbackPath
	}
	return &fallbackFile{path: path}
}

func (f *fallbackFile) append(rec fallbackRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode fallback record: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create fallback directory: %w", err)
		}
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open fallback file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write fallback file: %w", err)
	}
	return nil
}

// read returns every decodable record. Malformed lines are skipped.
func (f *fallbackFile) read() ([]fallbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open fallback file: %w", err)
	}
	defer file.Close()

	var out []fallbackRecord
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec fallbackRecord
		if json.Unmarshal(sc.Bytes(), &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
