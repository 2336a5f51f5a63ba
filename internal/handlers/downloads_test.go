package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDownloadHandlerStart(t *testing.T) {
	p := newFakeProvider()
	p.content["https://cdn/1.ogg"] = []byte("audio")

	m := newTestManager(p)
	dir := t.TempDir()
	h := NewDownloadHandler(zap.NewNop(), m, sharedMetrics, dir)

	body := `{"sounds": [{"id": "1", "preview_url": "https://cdn/1.ogg", "name": "kick"}], "query": "drums"}`
	req := httptest.NewRequest(http.MethodPost, "/downloads", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "started" {
		t.Errorf("status field = %v", resp["status"])
	}
	if resp["total"] != float64(1) {
		t.Errorf("total = %v, want 1", resp["total"])
	}

	waitForIdle(t, m)
	if _, err := os.Stat(filepath.Join(dir, "FS_ID_1.ogg")); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
}

func TestDownloadHandlerStartBadBody(t *testing.T) {
	h := NewDownloadHandler(zap.NewNop(), newTestManager(newFakeProvider()), sharedMetrics, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/downloads", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDownloadHandlerCancel(t *testing.T) {
	p := newFakeProvider()
	p.stall["https://cdn/slow.ogg"] = true

	m := newTestManager(p)
	h := NewDownloadHandler(zap.NewNop(), m, sharedMetrics, t.TempDir())

	// Cancel with nothing running
	w := httptest.NewRecorder()
	h.Cancel(w, httptest.NewRequest(http.MethodPost, "/downloads/cancel", nil))
	var resp map[string]bool
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["cancelled"] {
		t.Error("cancelled = true with no batch running")
	}

	// Start a stalled batch, then cancel it
	body := `{"sounds": [{"id": "s", "preview_url": "https://cdn/slow.ogg"}]}`
	w = httptest.NewRecorder()
	h.Start(w, httptest.NewRequest(http.MethodPost, "/downloads", strings.NewReader(body)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", w.Code)
	}
	waitForRunning(t, m)

	w = httptest.NewRecorder()
	h.Cancel(w, httptest.NewRequest(http.MethodPost, "/downloads/cancel", nil))
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp["cancelled"] {
		t.Error("cancelled = false, want true")
	}
	waitForIdle(t, m)
}

func TestDownloadHandlerProgress(t *testing.T) {
	m := newTestManager(newFakeProvider())
	h := NewDownloadHandler(zap.NewNop(), m, sharedMetrics, t.TempDir())

	w := httptest.NewRecorder()
	h.Progress(w, httptest.NewRequest(http.MethodGet, "/downloads/progress", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		State    string `json:"state"`
		Progress struct {
			TotalFiles      int     `json:"total_files"`
			OverallProgress float64 `json:"overall_progress"`
		} `json:"progress"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "idle" {
		t.Errorf("state = %q, want idle", resp.State)
	}
}
