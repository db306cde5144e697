package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

func TestDefaultStatic(t *testing.T) {
	g := DefaultStatic()
	tests := []struct {
		regime regime.Label
		want   strategy.Name
	}{
		{regime.HighVolatility, strategy.Scalping},
		{regime.Trending, strategy.Breakout},
		{regime.Ranging, strategy.Reversal},
		{regime.Label("unknown"), strategy.Scalping},
	}
	for _, tt := range tests {
		got, err := g.SuitableStrategy(context.Background(), tt.regime)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestHTTPGraphPrefersGraphEdges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"entities": [{"name":"trend_following","entityType":"Strategy","observations":[]}],
			"relations": [
				{"from":"martingale","to":"trending","relationType":"suits"},
				{"from":"trend_following","to":"trending","relationType":"suits"}
			]
		}`))
	}))
	defer srv.Close()

	g := NewHTTPGraph(srv.URL, srv.Client(), nil)

	got, err := g.SuitableStrategy(context.Background(), regime.Trending)
	require.NoError(t, err)
	assert.Equal(t, strategy.TrendFollowing, got)

	got, err = g.SuitableStrategy(context.Background(), regime.Ranging)
	require.NoError(t, err)
	assert.Equal(t, strategy.Reversal, got)
}

func TestHTTPGraphErrorsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPGraph(srv.URL, srv.Client(), nil).SuitableStrategy(context.Background(), regime.Trending)
	assert.Error(t, err)
}

func TestHTTPGraphCreateEntities(t *testing.T) {
	var got struct {
		Entities []Entity `json:"entities"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewHTTPGraph(srv.URL, srv.Client(), nil).CreateEntities(context.Background(), []Entity{
		{Name: "Alert_1", EntityType: "Alert", Observations: []string{"drawdown 5%"}},
	})
	require.NoError(t, err)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, "Alert", got.Entities[0].EntityType)
}
