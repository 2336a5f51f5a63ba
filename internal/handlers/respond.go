package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"soundcrate/internal/metrics"
	"soundcrate/internal/store"
)

// writeJSON serializes v with the given status code and counts the request.
func writeJSON(w http.ResponseWriter, m *metrics.Metrics, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
	m.RequestsTotal.WithLabelValues(fmt.Sprintf("%d", status)).Inc()
}

// writeError emits a JSON error body.
func writeError(w http.ResponseWriter, m *metrics.Metrics, status int, msg string) {
	writeJSON(w, m, status, map[string]string{"error": msg})
}

// storeStatus maps store errors onto HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
