package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"soundcrate/internal/downloader"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
	"soundcrate/internal/store"
)

// PresetHandler exposes preset slots and sample maintenance over HTTP.
type PresetHandler struct {
	logger  *zap.Logger
	store   *store.Store
	manager *downloader.Manager
	metrics *metrics.Metrics
}

// NewPresetHandler creates a new preset handler
func NewPresetHandler(logger *zap.Logger, s *store.Store, manager *downloader.Manager, m *metrics.Metrics) *PresetHandler {
	return &PresetHandler{
		logger:  logger,
		store:   s,
		manager: manager,
		metrics: m,
	}
}

func slotIndexVar(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["slot"])
	if err != nil {
		return 0, false
	}
	return index, true
}

// List returns preset summaries, newest first.
func (h *PresetHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.GetAvailablePresets()
	if err != nil {
		h.logger.Error("preset listing failed", zap.Error(err))
		writeError(w, h.metrics, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"presets": summaries,
		"total":   len(summaries),
	})
}

type saveSlotRequest struct {
	SlotName    string           `json:"slot_name"`
	Description string           `json:"description"`
	SearchQuery string           `json:"search_query"`
	Pads        []models.PadInfo `json:"pads"`
}

// SaveSlot stores pad records into one slot of a preset.
func (h *PresetHandler) SaveSlot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slot, ok := slotIndexVar(r)
	if !ok {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid slot index")
		return
	}

	var req saveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SaveToSlot(name, slot, req.SlotName, req.Description, req.SearchQuery, req.Pads); err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]string{"status": "ok"})
}

// LoadSlot returns the valid pad records of one slot.
func (h *PresetHandler) LoadSlot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slot, ok := slotIndexVar(r)
	if !ok {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid slot index")
		return
	}

	pads, err := h.store.LoadPreset(name, slot)
	if err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"pads":  pads,
		"total": len(pads),
	})
}

// DeleteSlot removes one slot, keeping the preset file.
func (h *PresetHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slot, ok := slotIndexVar(r)
	if !ok {
		writeError(w, h.metrics, http.StatusBadRequest, "invalid slot index")
		return
	}

	if err := h.store.DeleteSlot(name, slot); err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]string{"status": "ok"})
}

// DeletePreset removes a whole preset file.
func (h *PresetHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.store.DeletePreset(name); err != nil {
		writeError(w, h.metrics, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]string{"status": "ok"})
}

// CleanupSamples deletes sample files referenced by no preset slot.
// Refused while a download batch is running.
func (h *PresetHandler) CleanupSamples(w http.ResponseWriter, r *http.Request) {
	if h.manager.IsRunning() {
		writeError(w, h.metrics, http.StatusConflict, "download batch in progress")
		return
	}

	deleted, err := h.store.CleanupUnusedSamples()
	if err != nil {
		h.logger.Error("sample cleanup failed", zap.Error(err))
		writeError(w, h.metrics, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.metrics, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"total":   len(deleted),
	})
}
