package volatility

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Provider reports the current market volatility in [0,1].
type Provider interface {
	Volatility(ctx context.Context) (float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (float64, error)

func (f ProviderFunc) Volatility(ctx context.Context) (float64, error) { return f(ctx) }

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HTTPSource reads `{"volatility": x}` from a JSON endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a volatility source for url.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Volatility(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build volatility request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch volatility: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("volatility endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Volatility *float64 `json:"volatility"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode volatility: %w", err)
	}
	if payload.Volatility == nil {
		return 0, fmt.Errorf("volatility field missing")
	}
	return Clamp(*payload.Volatility), nil
}
