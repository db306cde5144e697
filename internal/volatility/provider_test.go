package volatility

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"volatility":0.42}`, 0.42, false},
		{"clamped high", http.StatusOK, `{"volatility":3.5}`, 1, false},
		{"missing field", http.StatusOK, `{}`, 0, true},
		{"bad status", http.StatusBadGateway, `{"volatility":0.1}`, 0, true},
		{"bad json", http.StatusOK, `not json`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v, err := NewHTTPSource(srv.URL, srv.Client()).Volatility(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.3, Clamp(0.3))
}
