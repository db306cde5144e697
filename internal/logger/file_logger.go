package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled, timestamped lines to a per-day session file and
// optionally mirrors them to stdout.
type Logger struct {
	name     string
	logFile  *os.File
	logger   *log.Logger
	mu       sync.Mutex
	logDir   string
	minLevel LogLevel
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug    LogLevel = "DEBUG"
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARN"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug:    0,
	LogLevelInfo:     1,
	LogLevelWarning:  2,
	LogLevelError:    3,
	LogLevelCritical: 4,
}

// ParseLevel maps a level name to a LogLevel. Unknown names map to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarning
	case "ERROR":
		return LogLevelError
	case "CRITICAL", "FATAL":
		return LogLevelCritical
	default:
		return LogLevelInfo
	}
}

// Options controls where a Logger writes.
type Options struct {
	Dir      string   // log directory, default "logs"
	Console  bool     // mirror to stdout
	MinLevel LogLevel // entries below this level are dropped
}

// NewLogger creates a new file logger for the named component
func NewLogger(name string, opts Options) (*Logger, error) {
	logDir := opts.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", name, timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if opts.Console {
		out = io.MultiWriter(file, os.Stdout)
	}

	l := &Logger{
		name:     name,
		logFile:  file,
		logger:   log.New(out, "", 0),
		logDir:   logDir,
		minLevel: orDefault(opts.MinLevel),
	}

	l.writeSessionHeader()

	return l, nil
}

// NewWriterLogger creates a logger that writes to w without a backing file.
func NewWriterLogger(name string, w io.Writer, minLevel LogLevel) *Logger {
	return &Logger{
		name:     name,
		logger:   log.New(w, "", 0),
		minLevel: orDefault(minLevel),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger("discard", io.Discard, LogLevelCritical)
}

func orDefault(l LogLevel) LogLevel {
	if _, ok := levelRank[l]; !ok {
		return LogLevelInfo
	}
	return l
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
SMART EA SESSION STARTED
================================================================================
Component: %s
Started: %s
================================================================================`, l.name, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil || levelRank[level] < levelRank[l.minLevel] {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	l.logger.Printf("[%s] session ended", time.Now().Format("2006-01-02 15:04:05"))
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.logDir == "" {
		return ""
	}
	timestamp := time.Now().Format("2006-01-02")
	return filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", l.name, timestamp))
}
