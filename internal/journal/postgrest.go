package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PostgREST writes the journal to a PostgREST endpoint: events go to
// /logs and trades to /trades.
type PostgREST struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPostgREST(baseURL, apiKey string, client *http.Client) *PostgREST {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PostgREST{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (p *PostgREST) WriteEvent(ctx context.Context, e Event) error {
	return p.post(ctx, "logs", e)
}

func (p *PostgREST) WriteTrade(ctx context.Context, t Trade) error {
	return p.post(ctx, "trades", t)
}

func (p *PostgREST) RecentEvents(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("order", "timestamp.desc")
	q.Set("limit", strconv.Itoa(n))

	var events []Event
	if err := p.get(ctx, "logs", q, &events); err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (p *PostgREST) Trades(ctx context.Context) ([]Trade, error) {
	q := url.Values{}
	q.Set("order", "timestamp.asc")

	var trades []Trade
	if err := p.get(ctx, "trades", q, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (p *PostgREST) Close() error { return nil }

func (p *PostgREST) post(ctx context.Context, table string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s row: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("postgrest %s returned status %d", table, resp.StatusCode)
	}
	return nil
}

func (p *PostgREST) get(ctx context.Context, table string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("postgrest %s returned status %d", table, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

func (p *PostgREST) authorize(req *http.Request) {
	if p.apiKey == "" {
		return
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}
