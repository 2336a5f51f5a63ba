package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/models"
)

// CleanupUnusedSamples deletes every sample file whose embedded sound id
// is referenced by no slot of any preset file. This is the one destructive
// cross-cutting maintenance operation; the caller must ensure no download
// or save is in flight while it runs. Returns the deleted filenames.
func (s *Store) CleanupUnusedSamples() (deleted []string, err error) {
	start := time.Now()
	defer func() { s.observe("sample_cleanup", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	referenced, err := s.referencedSampleIDsLocked()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.samplesDir)
	if err != nil {
		return nil, fmt.Errorf("read samples directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := models.SampleIDFromFileName(entry.Name())
		if id == "" {
			// Not one of ours, leave it alone
			continue
		}
		if _, ok := referenced[id]; ok {
			continue
		}

		path := filepath.Join(s.samplesDir, entry.Name())
		if removeErr := os.Remove(path); removeErr != nil {
			s.logger.Warn("failed to delete unused sample",
				zap.String("file", entry.Name()), zap.Error(removeErr))
			continue
		}
		deleted = append(deleted, entry.Name())
		s.metrics.SamplesDeletedTotal.Inc()
	}

	if len(deleted) > 0 {
		s.logger.Info("unused samples cleaned up", zap.Int("deleted", len(deleted)))
	}
	return deleted, nil
}

// referencedSampleIDsLocked unions the sound ids referenced by any slot
// across all preset files. Unparsable preset files contribute nothing but
// do not abort the scan.
func (s *Store) referencedSampleIDsLocked() (map[string]struct{}, error) {
	entries, err := os.ReadDir(s.presetsDir)
	if err != nil {
		return nil, fmt.Errorf("read presets directory: %w", err)
	}

	referenced := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var doc models.PresetDocument
		if readErr := readDocument(filepath.Join(s.presetsDir, entry.Name()), &doc); readErr != nil {
			s.logger.Warn("skipping unparsable preset file during cleanup",
				zap.String("file", entry.Name()), zap.Error(readErr))
			continue
		}

		for _, slot := range doc.Slots {
			for _, pad := range slot.Samples {
				if pad.FreesoundID != "" {
					referenced[pad.FreesoundID] = struct{}{}
				}
			}
		}
	}
	return referenced, nil
}
