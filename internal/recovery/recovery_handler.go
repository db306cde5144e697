package recovery

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/logger"
)

// RetryConfig defines how many times and how patiently a failed operation is
// retried.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// DefaultRetryConfig retries three times with exponential backoff from 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  1.5,
		Jitter:      true,
	}
}

// RecoveryHandler retries operations that fail with transient errors.
type RecoveryHandler struct {
	cfg    RetryConfig
	logger *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	stats *boterrors.ErrorStats
}

// NewRecoveryHandler creates a handler. log may be nil.
func NewRecoveryHandler(cfg RetryConfig, log *logger.Logger) *RecoveryHandler {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RecoveryHandler{
		cfg:    cfg,
		logger: log,
		sleep:  sleepCtx,
		stats:  boterrors.NewErrorStats(50),
	}
}

// Retryable reports whether err is worth another attempt: a retryable
// BotError, a network error or a per-call deadline.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var be *boterrors.BotError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Delay returns the backoff before retry number attempt (1-based).
func (rh *RecoveryHandler) Delay(attempt int) time.Duration {
	d := float64(rh.cfg.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= rh.cfg.Multiplier
	}
	delay := time.Duration(d)
	if delay > rh.cfg.MaxDelay {
		delay = rh.cfg.MaxDelay
	}
	if rh.cfg.Jitter {
		delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))
	}
	return delay
}

// ExecuteWithRecovery runs fn, retrying transient failures up to
// MaxAttempts. It returns the last error.
func (rh *RecoveryHandler) ExecuteWithRecovery(ctx context.Context, component, operation string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				rh.logger.Info("%s/%s recovered after %d attempts", component, operation, attempt)
			}
			return nil
		}

		rh.record(err, component, operation)
		if !Retryable(err) || attempt >= rh.cfg.MaxAttempts {
			return err
		}

		delay := rh.Delay(attempt)
		rh.logger.Warning("%s/%s attempt %d failed: %v, retrying in %s", component, operation, attempt, err, delay)
		if serr := rh.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

func (rh *RecoveryHandler) record(err error, component, operation string) {
	var be *boterrors.BotError
	if !errors.As(err, &be) {
		be = boterrors.CategorizeProviderError(err, component, operation)
	}
	rh.mu.Lock()
	rh.stats.RecordError(be)
	rh.mu.Unlock()
}

// TotalErrors returns how many failed attempts have been seen.
func (rh *RecoveryHandler) TotalErrors() int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.stats.TotalErrors
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
