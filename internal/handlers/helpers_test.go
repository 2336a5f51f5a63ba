package handlers

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/config"
	"soundcrate/internal/downloader"
	"soundcrate/internal/metrics"
	"soundcrate/internal/store"
)

// Shared metrics instance to avoid duplicate Prometheus registration
var sharedMetrics = metrics.New()

// fakeProvider serves canned bytes per URL; a stalled URL blocks until the
// fetch context is cancelled.
type fakeProvider struct {
	mu      sync.Mutex
	content map[string][]byte
	stall   map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		content: make(map[string][]byte),
		stall:   make(map[string]bool),
	}
}

func (p *fakeProvider) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stall[rawURL] {
		return &stallingReader{ctx: ctx}, -1, nil
	}
	data := p.content[rawURL]
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (p *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

type stallingReader struct {
	ctx context.Context
}

func (r *stallingReader) Read(p []byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func (r *stallingReader) Close() error { return nil }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		BaseDir:       base,
		SamplesDir:    filepath.Join(base, "samples"),
		PresetsDir:    filepath.Join(base, "presets"),
		BookmarksFile: filepath.Join(base, "bookmarks.json"),
	}
	s, err := store.New(zap.NewNop(), sharedMetrics, cfg)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return s
}

func newTestManager(p *fakeProvider) *downloader.Manager {
	cfg := &config.Config{
		DownloadChunkSize:    1024,
		ProgressTickInterval: 5 * time.Millisecond,
		CancelWaitTimeout:    time.Second,
	}
	return downloader.NewManager(zap.NewNop(), sharedMetrics, p, cfg)
}

// waitForIdle polls until the manager leaves the running state.
func waitForIdle(t *testing.T, m *downloader.Manager) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for m.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("manager did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForRunning polls until the manager reports a batch in flight.
func waitForRunning(t *testing.T, m *downloader.Manager) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !m.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("manager never started running")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
