package safety

import (
	"context"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/logger"
)

// FallbackHook is notified every time a guarded call resolves to its fallback.
type FallbackHook func(provider string, err *boterrors.BotError)

// GuardConfig configures a Guard.
type GuardConfig struct {
	Timeout time.Duration
	Breaker CircuitBreakerConfig
}

// DefaultGuardConfig returns the timeouts used for collaborator calls.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout: 5 * time.Second,
		Breaker: CircuitBreakerConfig{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Timeout:          time.Minute,
		},
	}
}

// Guard wraps collaborator calls with a timeout and a circuit breaker. A
// guarded call never fails: on any error it logs and yields the fallback.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *CircuitBreaker
	logger  *logger.Logger
	hook    FallbackHook

	mu    sync.Mutex
	stats *boterrors.ErrorStats
}

// NewGuard creates a guard for the named provider.
func NewGuard(name string, cfg GuardConfig, log *logger.Logger, hook FallbackHook) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGuardConfig().Timeout
	}
	if log == nil {
		log = logger.Discard()
	}
	g := &Guard{
		name:    name,
		timeout: cfg.Timeout,
		breaker: NewCircuitBreaker(name, cfg.Breaker),
		logger:  log,
		hook:    hook,
		stats:   boterrors.NewErrorStats(20),
	}
	g.breaker.SetStateChangeCallback(func(name string, from, to CircuitBreakerState) {
		log.Warning("provider %s breaker %s -> %s", name, from, to)
	})
	return g
}

// Name returns the guarded provider name.
func (g *Guard) Name() string { return g.name }

// Breaker exposes the underlying circuit breaker.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// GuardStats summarizes a guarded provider for status output.
type GuardStats struct {
	Provider string              `json:"provider"`
	Failures int                 `json:"failures"`
	Breaker  CircuitBreakerStats `json:"breaker"`
}

// Stats returns the provider's failure count and breaker state.
func (g *Guard) Stats() GuardStats {
	g.mu.Lock()
	failures := g.stats.TotalErrors
	g.mu.Unlock()
	return GuardStats{Provider: g.name, Failures: failures, Breaker: g.breaker.GetStats()}
}

func (g *Guard) fail(err error) {
	be := boterrors.CategorizeProviderError(err, g.name, "fetch")
	g.mu.Lock()
	g.stats.RecordError(be)
	g.mu.Unlock()

	g.logger.Warning("provider %s unavailable, using fallback: %v", g.name, be)
	if g.hook != nil {
		g.hook(g.name, be)
	}
}

// Fetch runs fn under g's timeout and breaker. The second result is false when
// the fallback was used.
func Fetch[T any](ctx context.Context, g *Guard, fallback T, fn func(ctx context.Context) (T, error)) (T, bool) {
	var out T
	err := g.breaker.Call(func() error {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		type result struct {
			v   T
			err error
		}
		done := make(chan result, 1)
		go func() {
			v, err := fn(cctx)
			done <- result{v, err}
		}()

		select {
		case r := <-done:
			out = r.v
			return r.err
		case <-cctx.Done():
			return cctx.Err()
		}
	})
	if err != nil {
		g.fail(err)
		return fallback, false
	}
	return out, true
}
