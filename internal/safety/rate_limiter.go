package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that adds one token every refillEvery, up to
// capacity.
type RateLimiter struct {
	name        string
	capacity    int
	refillEvery time.Duration
	now         func() time.Time

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	denied     int64
}

// NewRateLimiter creates a limiter that starts full.
func NewRateLimiter(name string, capacity int, refillEvery time.Duration) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillEvery <= 0 {
		refillEvery = time.Second
	}
	return &RateLimiter{
		name:        name,
		capacity:    capacity,
		refillEvery: refillEvery,
		now:         time.Now,
		tokens:      capacity,
		lastRefill:  time.Now(),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	rl.denied++
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.untilNext()):
		}
	}
}

func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	add := int(elapsed / rl.refillEvery)
	if add <= 0 {
		return
	}
	rl.tokens += add
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(add) * rl.refillEvery)
}

func (rl *RateLimiter) untilNext() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	d := rl.refillEvery - rl.now().Sub(rl.lastRefill)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// GetStats returns current statistics about the rate limiter
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return RateLimiterStats{
		Name:        rl.name,
		Capacity:    rl.capacity,
		Tokens:      rl.tokens,
		RefillEvery: rl.refillEvery,
		Denied:      rl.denied,
	}
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name        string
	Capacity    int
	Tokens      int
	RefillEvery time.Duration
	Denied      int64
}
