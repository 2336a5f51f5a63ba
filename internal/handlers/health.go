package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/fetcher"
	"soundcrate/internal/metrics"
	"soundcrate/internal/search"
	"soundcrate/internal/store"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	logger  *zap.Logger
	store   *store.Store
	fetcher *fetcher.Fetcher
	cache   *search.Cache // nil when caching is disabled
	metrics *metrics.Metrics
}

// NewHealthHandler creates a new health check handler. cache may be nil.
func NewHealthHandler(logger *zap.Logger, s *store.Store, f *fetcher.Fetcher, cache *search.Cache, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		store:   s,
		fetcher: f,
		cache:   cache,
		metrics: m,
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// Health returns health status (checks dependencies)
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	record := func(component string, healthy bool) {
		if healthy {
			checks[component] = "ok"
			h.metrics.HealthStatus.WithLabelValues(component).Set(1)
			return
		}
		checks[component] = "unavailable"
		allHealthy = false
		h.metrics.HealthStatus.WithLabelValues(component).Set(0)
		h.metrics.HealthChecksFailed.WithLabelValues(component).Inc()
		h.logger.Warn("health check failed", zap.String("component", component))
	}

	record("library", h.checkLibrary())
	record("fetcher", h.checkFetcher(ctx))
	if h.cache != nil {
		record("cache", h.cache.HealthCheck(ctx) == nil)
	}

	w.Header().Set("Content-Type", "application/json")
	if !allHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(healthResponse{
		Status:  map[bool]string{true: "healthy", false: "unhealthy"}[allHealthy],
		Checks:  checks,
		Version: "1.0.0",
	})
}

// checkLibrary verifies the samples directory is still a writable target.
func (h *HealthHandler) checkLibrary() bool {
	info, err := os.Stat(h.store.SamplesDir())
	return err == nil && info.IsDir()
}

func (h *HealthHandler) checkFetcher(ctx context.Context) bool {
	return h.fetcher.HealthCheck(ctx) == nil
}
