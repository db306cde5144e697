package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

// Provider suggests the strategy best suited to a regime.
type Provider interface {
	SuitableStrategy(ctx context.Context, r regime.Label) (strategy.Name, error)
}

// DefaultStrategy is suggested when a regime has no mapping.
const DefaultStrategy = strategy.Scalping

// Static is a fixed regime-to-strategy table.
type Static map[regime.Label]strategy.Name

// DefaultStatic returns the stock mapping.
func DefaultStatic() Static {
	return Static{
		regime.HighVolatility: strategy.Scalping,
		regime.Trending:       strategy.Breakout,
		regime.Ranging:        strategy.Reversal,
	}
}

func (s Static) SuitableStrategy(ctx context.Context, r regime.Label) (strategy.Name, error) {
	if n, ok := s[r]; ok {
		return n, nil
	}
	return DefaultStrategy, nil
}

// Entity is a knowledge-graph node.
type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// Relation is a knowledge-graph edge.
type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// Snapshot is the read_graph payload.
type Snapshot struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// SuitsRelation marks a strategy -> regime edge.
const SuitsRelation = "suits"

// Lookup finds the first strategy with a "suits" edge to r.
func (s Snapshot) Lookup(r regime.Label) (strategy.Name, bool) {
	for _, rel := range s.Relations {
		if rel.RelationType != SuitsRelation || rel.To != string(r) {
			continue
		}
		if n, err := strategy.ParseName(rel.From); err == nil {
			return n, true
		}
	}
	return "", false
}

// HTTPGraph reads the graph from a JSON endpoint and falls back to a static
// table for regimes the graph does not cover.
type HTTPGraph struct {
	url      string
	client   *http.Client
	fallback Static
}

// NewHTTPGraph creates a graph client for url.
func NewHTTPGraph(url string, client *http.Client, fallback Static) *HTTPGraph {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if fallback == nil {
		fallback = DefaultStatic()
	}
	return &HTTPGraph{url: url, client: client, fallback: fallback}
}

// Read fetches the whole graph.
func (g *HTTPGraph) Read(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build graph request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read graph: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("graph endpoint returned status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode graph: %w", err)
	}
	return snap, nil
}

func (g *HTTPGraph) SuitableStrategy(ctx context.Context, r regime.Label) (strategy.Name, error) {
	snap, err := g.Read(ctx)
	if err != nil {
		return "", err
	}
	if n, ok := snap.Lookup(r); ok {
		return n, nil
	}
	return g.fallback.SuitableStrategy(ctx, r)
}

// CreateEntities posts new nodes to the graph.
func (g *HTTPGraph) CreateEntities(ctx context.Context, entities []Entity) error {
	body, err := json.Marshal(map[string]interface{}{"entities": entities})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("create entities: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
