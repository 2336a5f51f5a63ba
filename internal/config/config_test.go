package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresBaseDir(t *testing.T) {
	t.Setenv("BASE_DIR", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without BASE_DIR")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BASE_DIR", "/tmp/library")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SamplesDir != filepath.Join("/tmp/library", "samples") {
		t.Errorf("SamplesDir = %q", cfg.SamplesDir)
	}
	if cfg.PresetsDir != filepath.Join("/tmp/library", "presets") {
		t.Errorf("PresetsDir = %q", cfg.PresetsDir)
	}
	if cfg.BookmarksFile != filepath.Join("/tmp/library", "bookmarks.json") {
		t.Errorf("BookmarksFile = %q", cfg.BookmarksFile)
	}
	if cfg.DownloadChunkSize != 32*1024 {
		t.Errorf("DownloadChunkSize = %d, want %d", cfg.DownloadChunkSize, 32*1024)
	}
	if cfg.ProgressTickInterval != 100*time.Millisecond {
		t.Errorf("ProgressTickInterval = %v, want 100ms", cfg.ProgressTickInterval)
	}
	if cfg.CancelWaitTimeout != 2*time.Second {
		t.Errorf("CancelWaitTimeout = %v, want 2s", cfg.CancelWaitTimeout)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.FetchMaxRetries != 3 {
		t.Errorf("FetchMaxRetries = %d, want 3", cfg.FetchMaxRetries)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BASE_DIR", "/data")
	t.Setenv("DOWNLOAD_CHUNK_SIZE", "8192")
	t.Setenv("PROGRESS_TICK_INTERVAL", "250ms")
	t.Setenv("CANCEL_WAIT_TIMEOUT", "5s")
	t.Setenv("PORT", "9090")
	t.Setenv("SEARCH_API_URL", "https://api.example.com/search")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DownloadChunkSize != 8192 {
		t.Errorf("DownloadChunkSize = %d, want 8192", cfg.DownloadChunkSize)
	}
	if cfg.ProgressTickInterval != 250*time.Millisecond {
		t.Errorf("ProgressTickInterval = %v, want 250ms", cfg.ProgressTickInterval)
	}
	if cfg.CancelWaitTimeout != 5*time.Second {
		t.Errorf("CancelWaitTimeout = %v, want 5s", cfg.CancelWaitTimeout)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.SearchAPIURL != "https://api.example.com/search" {
		t.Errorf("SearchAPIURL = %q", cfg.SearchAPIURL)
	}
}

func TestLoadInvalidChunkSize(t *testing.T) {
	t.Setenv("BASE_DIR", "/data")
	t.Setenv("DOWNLOAD_CHUNK_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a zero chunk size")
	}
}

func TestLoadHTTPSRequiresDomains(t *testing.T) {
	t.Setenv("BASE_DIR", "/data")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("LETSENCRYPT_DOMAINS", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when HTTPS is enabled without domains")
	}
}

func TestParseStringList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"single", "a.example.com", 1},
		{"multiple with spaces", "a.example.com, b.example.com", 2},
		{"trailing comma", "a.example.com,", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseStringList(tt.input); len(got) != tt.want {
				t.Errorf("parseStringList(%q) = %v, want %d entries", tt.input, got, tt.want)
			}
		})
	}
}
