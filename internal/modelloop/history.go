package modelloop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultHistoryMaxLength bounds how much of the historical payload is read.
const DefaultHistoryMaxLength = 5000

// HistorySource returns raw historical market data.
type HistorySource interface {
	History(ctx context.Context) (string, error)
}

// HTTPHistory fetches historical data from a URL.
type HTTPHistory struct {
	url       string
	client    *http.Client
	maxLength int64
}

func NewHTTPHistory(url string, client *http.Client, maxLength int64) *HTTPHistory {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxLength <= 0 {
		maxLength = DefaultHistoryMaxLength
	}
	return &HTTPHistory{url: url, client: client, maxLength: maxLength}
}

func (h *HTTPHistory) History(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("history endpoint returned status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, h.maxLength))
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	return string(b), nil
}
