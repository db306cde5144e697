package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultOutputDir is where exports land when no path is given.
const DefaultOutputDir = "reports"

// DefaultOutputPath returns a timestamped file name under DefaultOutputDir.
func DefaultOutputPath(ext string, now time.Time) string {
	return filepath.Join(DefaultOutputDir, fmt.Sprintf("smart_ea_%s.%s", now.UTC().Format("20060102_150405"), ext))
}

// EnsureDirectoryExists creates the parent directory of path if needed.
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
