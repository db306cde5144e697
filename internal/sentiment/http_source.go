package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Analysis is the NLP endpoint's verdict.
type Analysis struct {
	Sentiment string `json:"sentiment"`
	Reasoning string `json:"reasoning"`
}

// AnalysisHook receives every successful analysis along with the text analyzed.
type AnalysisHook func(ctx context.Context, a Analysis, headlines string)

// HTTPConfig configures HTTPSource.
type HTTPConfig struct {
	NewsURLs    []string
	AnalyzeURL  string
	APIKey      string
	Model       string
	MaxTextSize int
}

// HTTPSource collects the latest headline from each news URL and asks an NLP
// endpoint to classify them.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
	hook   AnalysisHook
}

// NewHTTPSource creates an HTTP-backed sentiment source. hook may be nil.
func NewHTTPSource(cfg HTTPConfig, client *http.Client, hook AnalysisHook) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.MaxTextSize <= 0 {
		cfg.MaxTextSize = 1000
	}
	if cfg.Model == "" {
		cfg.Model = "skylark"
	}
	return &HTTPSource{cfg: cfg, client: client, hook: hook}
}

type newsItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (s *HTTPSource) Sentiment(ctx context.Context) (Label, error) {
	if s.cfg.APIKey == "" {
		return "", errors.New("sentiment API key not set")
	}

	var text strings.Builder
	for _, u := range s.cfg.NewsURLs {
		item, err := s.latestNews(ctx, u)
		if err != nil {
			return "", err
		}
		text.WriteString(item.Title)
		text.WriteString(" ")
		text.WriteString(item.Snippet)
		text.WriteString(" ")
	}
	headlines := text.String()
	if len(headlines) > s.cfg.MaxTextSize {
		headlines = headlines[:s.cfg.MaxTextSize]
	}

	a, err := s.analyze(ctx, headlines)
	if err != nil {
		return "", err
	}
	l, err := Parse(a.Sentiment)
	if err != nil {
		l = Neutral
	}
	if s.hook != nil {
		s.hook(ctx, a, headlines)
	}
	return l, nil
}

func (s *HTTPSource) latestNews(ctx context.Context, url string) (newsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newsItem{}, fmt.Errorf("build news request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return newsItem{}, fmt.Errorf("fetch news %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return newsItem{}, fmt.Errorf("news %s returned status %d", url, resp.StatusCode)
	}

	var payload struct {
		Data []newsItem `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return newsItem{}, fmt.Errorf("decode news %s: %w", url, err)
	}
	if len(payload.Data) == 0 {
		return newsItem{}, nil
	}
	return payload.Data[0], nil
}

func (s *HTTPSource) analyze(ctx context.Context, text string) (Analysis, error) {
	body, err := json.Marshal(map[string]string{
		"prompt": "Analyze the sentiment of this forex news text and classify it as positive, negative, or neutral with reasoning: " + text,
		"model":  s.cfg.Model,
	})
	if err != nil {
		return Analysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AnalyzeURL, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze sentiment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("analyze endpoint returned status %d", resp.StatusCode)
	}

	var a Analysis
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if a.Sentiment == "" {
		a.Sentiment = string(Neutral)
	}
	return a, nil
}
