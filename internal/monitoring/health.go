package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks liveness signals reported by the running components.
type HealthChecker struct {
	mu            sync.RWMutex
	lastDecision  time.Time
	lastStrategy  string
	journalOK     bool
	providersDown map[string]bool
	errors        []string
	maxErrors     int
	now           func() time.Time
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastDecision  time.Time `json:"last_decision"`
	LastStrategy  string    `json:"last_strategy,omitempty"`
	JournalOK     bool      `json:"journal_ok"`
	ProvidersDown []string  `json:"providers_down,omitempty"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		journalOK:     true,
		providersDown: make(map[string]bool),
		errors:        make([]string, 0),
		maxErrors:     10,
		now:           time.Now,
	}
}

// RecordDecision notes that a strategy was recommended.
func (h *HealthChecker) RecordDecision(strategy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDecision = h.now()
	h.lastStrategy = strategy
}

// SetProviderDown marks a provider as falling back (true) or healthy (false).
func (h *HealthChecker) SetProviderDown(provider string, down bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if down {
		h.providersDown[provider] = true
	} else {
		delete(h.providersDown, provider)
	}
}

// SetJournalOK reports whether the journal primary sink is accepting writes.
func (h *HealthChecker) SetJournalOK(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.journalOK = ok
}

// RecordError keeps the most recent error messages.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > h.maxErrors {
		h.errors = h.errors[len(h.errors)-h.maxErrors:]
	}
}

// ClearErrors drops recorded errors.
func (h *HealthChecker) ClearErrors() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = h.errors[:0]
}

// Status builds the current health report. Provider fallbacks and journal
// fallback only degrade the service; recorded errors make it unhealthy.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.journalOK || len(h.providersDown) > 0 {
		status = "degraded"
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
	}

	down := make([]string, 0, len(h.providersDown))
	for p := range h.providersDown {
		down = append(down, p)
	}

	return HealthStatus{
		Status:        status,
		Timestamp:     h.now(),
		LastDecision:  h.lastDecision,
		LastStrategy:  h.lastStrategy,
		JournalOK:     h.journalOK,
		ProvidersDown: down,
		Uptime:        time.Since(startTime).String(),
		Errors:        append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
