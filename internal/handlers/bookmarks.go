package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"soundcrate/internal/downloader"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
	"soundcrate/internal/store"
)

// BookmarkHandler exposes the bookmark store over HTTP.
type BookmarkHandler struct {
	logger  *zap.Logger
	store   *store.Store
	manager *downloader.Manager
	metrics *metrics.Metrics
}

// NewBookmarkHandler creates a new bookmark handler
func NewBookmarkHandler(logger *zap.Logger, s *store.Store, manager *downloader.Manager, m *metrics.Metrics) *BookmarkHandler {
	return &BookmarkHandler{
		logger:  logger,
		store:   s,
		manager: manager,
		metrics: m,
	}
}

// List returns all bookmarks.
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	bookmarks := h.store.GetAllBookmarks()
	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"bookmarks": bookmarks,
		"total":     len(bookmarks),
	})
}

// Add records a bookmark; adding a duplicate id succeeds without change.
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	var entry models.BookmarkEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.AddBookmark(entry); err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]string{"status": "ok"})
}

// Remove deletes one bookmark by freesound id.
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.RemoveBookmark(id); err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]string{"status": "ok"})
}

// Cleanup drops bookmarks whose sample file is gone. Refused while a
// download batch is running.
func (h *BookmarkHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if h.manager.IsRunning() {
		writeError(w, h.metrics, http.StatusConflict, "download batch in progress")
		return
	}

	removed, err := h.store.CleanupMissingFiles()
	if err != nil {
		h.logger.Error("bookmark cleanup failed", zap.Error(err))
		writeError(w, h.metrics, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]int{"removed": removed})
}
