package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"soundcrate/internal/downloader"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
)

// DownloadHandler exposes the download manager over HTTP.
type DownloadHandler struct {
	logger     *zap.Logger
	manager    *downloader.Manager
	metrics    *metrics.Metrics
	samplesDir string
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(logger *zap.Logger, manager *downloader.Manager, m *metrics.Metrics, samplesDir string) *DownloadHandler {
	return &DownloadHandler{
		logger:     logger,
		manager:    manager,
		metrics:    m,
		samplesDir: samplesDir,
	}
}

type startDownloadsRequest struct {
	Sounds []models.SoundDescriptor `json:"sounds"`
	Query  string                   `json:"query"`
}

// Start begins a download batch into the samples directory.
func (h *DownloadHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startDownloadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.StartDownloads(req.Sounds, h.samplesDir, req.Query); err != nil {
		h.logger.Warn("failed to start download batch", zap.Error(err))
		writeError(w, h.metrics, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, h.metrics, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"total":  len(req.Sounds),
	})
}

// Cancel requests cancellation of the running batch.
func (h *DownloadHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	cancelled := h.manager.Cancel()
	writeJSON(w, h.metrics, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// Progress returns the latest progress snapshot and the manager state.
func (h *DownloadHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"state":    h.manager.State().String(),
		"progress": h.manager.Progress(),
	})
}
