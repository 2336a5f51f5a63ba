package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soundcrate/internal/circuitbreaker"
	"soundcrate/internal/config"
	"soundcrate/internal/fetcher"
)

func newTestFetcher(t *testing.T) *fetcher.Fetcher {
	t.Helper()
	cfg := &config.Config{
		FetchTimeout:              time.Second,
		FetchMaxRetries:           1,
		FetchRetryDelay:           time.Millisecond,
		CircuitBreakerThreshold:   100,
		CircuitBreakerTimeout:     time.Second,
		CircuitBreakerMaxRequests: 1,
	}
	cb := circuitbreaker.New(t.Name(), cfg, sharedMetrics)
	f, err := fetcher.New(context.Background(), cfg, sharedMetrics, cb)
	require.NoError(t, err)
	return f
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(zap.NewNop(), newTestStore(t), newTestFetcher(t), nil, sharedMetrics)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["library"])
	assert.Equal(t, "ok", resp.Checks["fetcher"])
	assert.NotContains(t, resp.Checks, "cache", "cache check should be absent when no cache is configured")
}
