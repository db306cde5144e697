package sentiment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Label is the categorical news-derived sentiment.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Valid reports whether l is a known sentiment.
func (l Label) Valid() bool {
	switch l {
	case Positive, Negative, Neutral:
		return true
	}
	return false
}

// Parse maps free text such as "Positive" to a Label.
func Parse(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown sentiment %q", s)
	}
	return l, nil
}

// Provider reports the current market sentiment.
type Provider interface {
	Sentiment(ctx context.Context) (Label, error)
}

// Static always reports the same sentiment.
type Static Label

func (s Static) Sentiment(ctx context.Context) (Label, error) { return Label(s), nil }

// DefaultCacheTTL is how long a fetched sentiment is reused.
const DefaultCacheTTL = 5 * time.Minute

// Cached reuses the last successful reading of a source for a TTL. Errors are
// not cached: the next call retries the source.
type Cached struct {
	source Provider
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    Label
	fetchedAt time.Time
}

// NewCached wraps source with a TTL cache.
func NewCached(source Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{source: source, ttl: ttl, now: time.Now}
}

func (c *Cached) Sentiment(ctx context.Context) (Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != "" && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	l, err := c.source.Sentiment(ctx)
	if err != nil {
		return "", err
	}
	c.cached = l
	c.fetchedAt = c.now()
	return l, nil
}
