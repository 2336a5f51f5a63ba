package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"soundcrate/internal/metrics"
	"soundcrate/internal/search"
)

// SearchHandler proxies sound searches to the upstream API.
type SearchHandler struct {
	logger  *zap.Logger
	client  search.Client
	metrics *metrics.Metrics
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(logger *zap.Logger, client search.Client, m *metrics.Metrics) *SearchHandler {
	return &SearchHandler{
		logger:  logger,
		client:  client,
		metrics: m,
	}
}

// Search handles GET /search?q=<query>.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, h.metrics, http.StatusBadRequest, "missing query parameter q")
		return
	}

	sounds, err := h.client.Search(r.Context(), query)
	if err != nil {
		h.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		writeError(w, h.metrics, http.StatusBadGateway, "search upstream unavailable")
		return
	}

	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"results": sounds,
		"total":   len(sounds),
	})
}
