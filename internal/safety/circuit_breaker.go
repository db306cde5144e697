package safety

import (
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name in JSON.
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // Number of consecutive failures before opening
	SuccessThreshold uint32        // Number of successes to close from half-open
	Timeout          time.Duration // Time to stay open before probing
}

// ErrCircuitOpen is returned by Call while the breaker rejects calls.
type ErrCircuitOpen struct{ Name string }

func (e ErrCircuitOpen) Error() string { return fmt.Sprintf("circuit breaker %s is open", e.Name) }

// CircuitBreaker stops calling a failing provider for a cool-down period.
type CircuitBreaker struct {
	config        CircuitBreakerConfig
	state         CircuitBreakerState
	failures      uint32
	successes     uint32
	lastFailure   time.Time
	nextAttempt   time.Time
	mutex         sync.Mutex
	name          string
	now           func() time.Time
	onStateChange func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		name:   name,
		now:    time.Now,
	}
}

// SetStateChangeCallback sets a callback invoked synchronously, outside the lock, on state changes
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(name string, from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = callback
}

// Call executes fn with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen{Name: cb.name}
	}

	if err := fn(); err != nil {
		cb.record(false)
		return err
	}
	cb.record(true)
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mutex.Lock()
	var from, to CircuitBreakerState
	changed := false
	allowed := true

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			allowed = false
		} else {
			from, to, changed = cb.state, StateHalfOpen, true
			cb.state = StateHalfOpen
			cb.successes = 0
		}
	}
	callback := cb.onStateChange
	cb.mutex.Unlock()

	if changed && callback != nil {
		callback(cb.name, from, to)
	}
	return allowed
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mutex.Lock()
	from := cb.state

	if success {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.successes = 0
			}
		}
	} else {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.successes = 0
			cb.nextAttempt = cb.now().Add(cb.config.Timeout)
		}
	}

	to := cb.state
	callback := cb.onStateChange
	cb.mutex.Unlock()

	if from != to && callback != nil {
		callback(cb.name, from, to)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerStats{
		Name:        cb.name,
		State:       cb.state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

// CircuitBreakerStats holds statistics about a circuit breaker
type CircuitBreakerStats struct {
	Name        string              `json:"name"`
	State       CircuitBreakerState `json:"state"`
	Failures    uint32              `json:"failures"`
	LastFailure time.Time           `json:"last_failure"`
	NextAttempt time.Time           `json:"next_attempt"`
}
