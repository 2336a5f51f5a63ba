package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/config"
	"soundcrate/internal/metrics"
	"soundcrate/internal/models"
)

const (
	documentVersion = "1.0"
	pluginName      = "soundcrate"

	// maxPresetNameLen caps sanitized preset filenames.
	maxPresetNameLen = 50
)

var (
	// ErrInvalidInput marks synchronously rejected caller input (empty id,
	// out-of-range slot index). The store is left untouched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks lookups of bookmarks, presets or slots that do not
	// exist in the store.
	ErrNotFound = errors.New("not found")
)

// Store is the durable JSON-backed persistence layer: one document per
// preset (up to 8 slots), one document for all bookmarks, and derived
// existence checks against the samples directory.
//
// Every mutation is a full load-modify-rewrite of the affected document.
// An internal mutex serializes mutations so concurrent callers cannot
// interleave rewrites, but the external contract remains one logical
// writer at a time: the full-document protocol is not merge-safe across
// processes.
type Store struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	samplesDir    string
	presetsDir    string
	bookmarksFile string

	mu sync.Mutex

	// Active-preset tracking is process-local transient state, reset on
	// restart. Guarded by mu.
	activePreset string
	activeSlot   int
}

// New creates a store rooted at the configured library directories,
// creating them if absent.
func New(logger *zap.Logger, m *metrics.Metrics, cfg *config.Config) (*Store, error) {
	for _, dir := range []string{cfg.SamplesDir, cfg.PresetsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Store{
		logger:        logger,
		metrics:       m,
		samplesDir:    cfg.SamplesDir,
		presetsDir:    cfg.PresetsDir,
		bookmarksFile: cfg.BookmarksFile,
		activeSlot:    -1,
	}, nil
}

// SamplesDir returns the directory downloaded samples live in.
func (s *Store) SamplesDir() string {
	return s.samplesDir
}

// ActivePreset returns the preset name and slot most recently saved or
// loaded in this process, or ok=false when none is active.
func (s *Store) ActivePreset() (name string, slot int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePreset == "" {
		return "", -1, false
	}
	return s.activePreset, s.activeSlot, true
}

func (s *Store) setActiveLocked(name string, slot int) {
	s.activePreset = name
	s.activeSlot = slot
}

func (s *Store) clearActiveIfLocked(name string, slot int) {
	if s.activePreset != name {
		return
	}
	// slot < 0 clears regardless of the active slot (whole-file deletion)
	if slot < 0 || s.activeSlot == slot {
		s.activePreset = ""
		s.activeSlot = -1
	}
}

// observe records one store operation's metrics.
func (s *Store) observe(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	s.metrics.StoreOpsTotal.WithLabelValues(op, result).Inc()
	s.metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// now returns the current timestamp in the persisted format.
func now() string {
	return time.Now().Format(models.TimestampFormat)
}

// readDocument loads and parses a JSON document into out. It distinguishes
// "absent" (ErrNotFound) from unreadable or unparsable content so callers
// can treat corruption as start-fresh for writes without masking missing
// files on reads.
func readDocument(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeDocument serializes the whole document and overwrites the file.
func writeDocument(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SanitizePresetName maps a user-supplied preset name to a safe filename
// stem: path-hostile characters and spaces become underscores and the
// result is truncated to 50 characters.
func SanitizePresetName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>| `, r) {
			return '_'
		}
		return r
	}, name)
	if len(sanitized) > maxPresetNameLen {
		sanitized = sanitized[:maxPresetNameLen]
	}
	return sanitized
}
