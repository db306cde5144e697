package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/smart-ea/internal/advisor"
	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/regime"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/sentiment"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

type fixture struct {
	server  *Server
	advisor *advisor.Advisor
	events  *journal.EventLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := journal.NewEventLogger(journal.Options{FallbackPath: filepath.Join(t.TempDir(), "events.jsonl")})
	adv := advisor.New(strategy.NewSelector(nil), risk.NewEngine(risk.DefaultConfig(), nil, nil), advisor.Providers{
		Regime:    regime.Static(regime.Trending),
		Sentiment: sentiment.Static(sentiment.Positive),
		Graph:     graph.DefaultStatic(),
	}, advisor.Options{Journal: events})

	srv := NewServer(adv, events, Options{Mode: gin.TestMode})
	return &fixture{server: srv, advisor: adv, events: events}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetStrategy(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/strategy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "breakout", body["strategy"])
	assert.InDelta(t, 0.55, body["confidence"], 1e-9)
}

func TestRiskLot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/risk/lot", `{"balance": 500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 0.005, body["lot"], 1e-12)
	assert.Equal(t, false, body["paused"])

	rec = f.do(t, http.MethodPost, "/risk/lot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.01, decode(t, rec)["lot"], 1e-12)

	rec = f.do(t, http.MethodPost, "/risk/lot", `{"balance": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/risk/lot", `{"balance": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/risk/lot", `{"balance": 10000, "confidence": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusIncludesProviderBreakers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	providers, ok := body["providers"].([]interface{})
	require.True(t, ok)
	require.Len(t, providers, 3)
	first := providers[0].(map[string]interface{})
	assert.Equal(t, "regime", first["provider"])
	assert.Equal(t, "CLOSED", first["breaker"].(map[string]interface{})["state"])
}

func TestRiskLotPaused(t *testing.T) {
	f := newFixture(t)
	f.advisor.Engine().UpdateDrawdown(0.045)

	rec := f.do(t, http.MethodPost, "/risk/lot", `{"balance": 10000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 0.0, body["lot"])
	assert.Equal(t, true, body["paused"])
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/update", `{"strategy": "scalping", "win": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "updated", body["status"])
	st := body["strategy"].(map[string]interface{})
	assert.InDelta(t, 0.45, st["win_rate"], 1e-12)
	rk := body["risk"].(map[string]interface{})
	assert.InDelta(t, 0.008, rk["lot"], 1e-12)

	trades, err := f.events.Trades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, strategy.Scalping, trades[0].Strategy)

	rec = f.do(t, http.MethodPost, "/update", `{"strategy": "martingale", "win": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "martingale")

	rec = f.do(t, http.MethodPost, "/update", `{"strategy": "news"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLog(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/log", `{"level": "warning", "message": "High volatility detected", "data": {"vol": 0.9}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged", decode(t, rec)["status"])

	events, err := f.events.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "WARN", string(events[0].Level))
	assert.Equal(t, 0.9, events[0].Data["vol"])

	rec = f.do(t, http.MethodPost, "/log", `{"level": "INFO"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/log", `{"message": "Trade opened <b>"}`).Code)

	rec := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "Smart EA Monitoring Dashboard")
	assert.Contains(t, html, "trend_following")
	assert.Contains(t, html, "50.00%")
	assert.Contains(t, html, "Trade opened &lt;b&gt;")
}

func TestHealthMetricsAndNotFound(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "smart_ea_"))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodOptions, "/strategy", "").Code)
}

func TestWebsocketReceivesEvents(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.server.Hub().Run(ctx)

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.server.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/log", "application/json", strings.NewReader(`{"message": "hello feed"}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var e journal.Event
	require.NoError(t, json.Unmarshal(msg, &e))
	assert.Equal(t, "hello feed", e.Message)
}
