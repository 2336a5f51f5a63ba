package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"soundcrate/internal/models"
)

// PresetSummary is the parsed header of one preset file, used for listings.
type PresetSummary struct {
	Name         string `json:"name"`
	FileName     string `json:"file_name"`
	CreatedDate  string `json:"created_date"`
	Description  string `json:"description,omitempty"`
	SlotsUsed    int    `json:"slots_used"`
	TotalSamples int    `json:"total_samples"`
}

// presetPath maps a preset name to its on-disk document.
func (s *Store) presetPath(name string) string {
	return filepath.Join(s.presetsDir, SanitizePresetName(name)+".json")
}

// loadPresetLocked reads a preset document. Missing file returns
// ErrNotFound; corrupt content returns a fresh document for write paths
// (corrupt=true) so mutations can start over without failing.
func (s *Store) loadPresetLocked(name string) (models.PresetDocument, error) {
	var doc models.PresetDocument
	err := readDocument(s.presetPath(name), &doc)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, ErrNotFound) {
		return models.PresetDocument{}, err
	}
	s.logger.Warn("preset document unreadable", zap.String("preset", name), zap.Error(err))
	return models.PresetDocument{}, err
}

// writePresetLocked updates the metadata header and rewrites the document.
func (s *Store) writePresetLocked(name string, doc models.PresetDocument) error {
	if doc.Slots == nil {
		doc.Slots = make(map[int]models.PresetSlot)
	}
	if doc.PresetInfo.Name == "" {
		doc.PresetInfo.Name = name
	}
	if doc.PresetInfo.CreatedDate == "" {
		doc.PresetInfo.CreatedDate = now()
	}
	if doc.FileMetadata.Version == "" {
		doc.FileMetadata.Version = documentVersion
	}
	if doc.FileMetadata.PluginName == "" {
		doc.FileMetadata.PluginName = pluginName
	}
	doc.FileMetadata.LastModified = now()
	doc.FileMetadata.TotalSlotsUsed = len(doc.Slots)
	return writeDocument(s.presetPath(name), doc)
}

// SaveToSlot merges one slot's pads into the preset document without
// disturbing sibling slots, creating the file if absent. On success the
// (preset, slot) pair becomes the active preset.
func (s *Store) SaveToSlot(presetName string, slotIndex int, slotName, description, searchQuery string, pads []models.PadInfo) (err error) {
	start := time.Now()
	defer func() { s.observe("preset_save", start, err) }()

	if presetName == "" {
		return fmt.Errorf("%w: empty preset name", ErrInvalidInput)
	}
	if slotIndex < 0 || slotIndex >= models.MaxSlots {
		return fmt.Errorf("%w: slot index %d out of range", ErrInvalidInput, slotIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, loadErr := s.loadPresetLocked(presetName)
	if loadErr != nil && !errors.Is(loadErr, ErrNotFound) {
		// Corrupt document: start fresh for this write
		doc = models.PresetDocument{}
	}
	if doc.Slots == nil {
		doc.Slots = make(map[int]models.PresetSlot)
	}

	if slotName == "" {
		slotName = presetName
	}
	doc.Slots[slotIndex] = models.PresetSlot{
		SlotInfo: models.SlotInfo{
			Name:        slotName,
			SearchQuery: searchQuery,
			Description: description,
			SampleCount: len(pads),
			CreatedAt:   now(),
		},
		Samples: append([]models.PadInfo(nil), pads...),
	}

	if err = s.writePresetLocked(presetName, doc); err != nil {
		return err
	}

	s.setActiveLocked(presetName, slotIndex)
	s.logger.Info("preset slot saved",
		zap.String("preset", presetName),
		zap.Int("slot", slotIndex),
		zap.Int("samples", len(pads)))
	return nil
}

// SaveCurrentPreset saves pads as a new slot in the preset named name,
// using the preset name as the slot name.
func (s *Store) SaveCurrentPreset(name, description string, pads []models.PadInfo, searchQuery string, slotIndex int) error {
	return s.SaveToSlot(name, slotIndex, name, description, searchQuery, pads)
}

// LoadPreset returns the valid pad records stored in the given slot.
// Individual malformed or out-of-range pad records are dropped silently;
// the load fails only if the file or slot is absent or no valid records
// remain. On success the (preset, slot) pair becomes the active preset.
func (s *Store) LoadPreset(presetName string, slotIndex int) (pads []models.PadInfo, err error) {
	start := time.Now()
	defer func() { s.observe("preset_load", start, err) }()

	if presetName == "" {
		return nil, fmt.Errorf("%w: empty preset name", ErrInvalidInput)
	}
	if slotIndex < 0 || slotIndex >= models.MaxSlots {
		return nil, fmt.Errorf("%w: slot index %d out of range", ErrInvalidInput, slotIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadPresetLocked(presetName)
	if err != nil {
		return nil, err
	}

	slot, ok := doc.Slots[slotIndex]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d in preset %s", ErrNotFound, slotIndex, presetName)
	}

	dropped := 0
	for _, pad := range slot.Samples {
		if !pad.Valid() {
			dropped++
			continue
		}
		pads = append(pads, pad)
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid pad records on load",
			zap.String("preset", presetName),
			zap.Int("slot", slotIndex),
			zap.Int("dropped", dropped))
	}
	if len(pads) == 0 {
		return nil, fmt.Errorf("slot %d in preset %s has no valid pad records", slotIndex, presetName)
	}

	s.setActiveLocked(presetName, slotIndex)
	return pads, nil
}

// HasSlotData reports whether the given slot holds any pad records.
func (s *Store) HasSlotData(presetName string, slotIndex int) bool {
	if presetName == "" || slotIndex < 0 || slotIndex >= models.MaxSlots {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadPresetLocked(presetName)
	if err != nil {
		return false
	}
	slot, ok := doc.Slots[slotIndex]
	return ok && len(slot.Samples) > 0
}

// DeleteSlot removes one slot from the preset document and rewrites it.
// Sibling slots are untouched and the file is kept even if no slots
// remain. Clears active-preset tracking if the deleted slot was active.
func (s *Store) DeleteSlot(presetName string, slotIndex int) (err error) {
	start := time.Now()
	defer func() { s.observe("slot_delete", start, err) }()

	if presetName == "" {
		return fmt.Errorf("%w: empty preset name", ErrInvalidInput)
	}
	if slotIndex < 0 || slotIndex >= models.MaxSlots {
		return fmt.Errorf("%w: slot index %d out of range", ErrInvalidInput, slotIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadPresetLocked(presetName)
	if err != nil {
		return err
	}
	if _, ok := doc.Slots[slotIndex]; !ok {
		return fmt.Errorf("%w: slot %d in preset %s", ErrNotFound, slotIndex, presetName)
	}

	delete(doc.Slots, slotIndex)
	if err = s.writePresetLocked(presetName, doc); err != nil {
		return err
	}

	s.clearActiveIfLocked(presetName, slotIndex)
	s.logger.Info("preset slot deleted", zap.String("preset", presetName), zap.Int("slot", slotIndex))
	return nil
}

// DeletePreset deletes the whole preset file. Clears active-preset
// tracking if the deleted preset was active.
func (s *Store) DeletePreset(presetName string) (err error) {
	start := time.Now()
	defer func() { s.observe("preset_delete", start, err) }()

	if presetName == "" {
		return fmt.Errorf("%w: empty preset name", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.presetPath(presetName)
	if removeErr := os.Remove(path); removeErr != nil {
		if os.IsNotExist(removeErr) {
			return fmt.Errorf("%w: preset %s", ErrNotFound, presetName)
		}
		return fmt.Errorf("delete preset: %w", removeErr)
	}

	s.clearActiveIfLocked(presetName, -1)
	s.logger.Info("preset deleted", zap.String("preset", presetName))
	return nil
}

// GetAvailablePresets enumerates preset files, parses each for summary
// info with bounded concurrency, and returns them sorted by creation date
// descending. Unparsable files are skipped.
func (s *Store) GetAvailablePresets() (summaries []PresetSummary, err error) {
	start := time.Now()
	defer func() { s.observe("preset_list", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.presetsDir)
	if err != nil {
		return nil, fmt.Errorf("read presets directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}

	results := make([]*PresetSummary, len(names))
	var g errgroup.Group
	g.SetLimit(4)
	for i, fileName := range names {
		i, fileName := i, fileName
		g.Go(func() error {
			var doc models.PresetDocument
			if readErr := readDocument(filepath.Join(s.presetsDir, fileName), &doc); readErr != nil {
				s.logger.Warn("skipping unparsable preset file",
					zap.String("file", fileName), zap.Error(readErr))
				return nil
			}

			summary := PresetSummary{
				Name:        doc.PresetInfo.Name,
				FileName:    fileName,
				CreatedDate: doc.PresetInfo.CreatedDate,
				Description: doc.PresetInfo.Description,
				SlotsUsed:   len(doc.Slots),
			}
			if summary.Name == "" {
				summary.Name = strings.TrimSuffix(fileName, ".json")
			}
			for _, slot := range doc.Slots {
				summary.TotalSamples += len(slot.Samples)
			}
			results[i] = &summary
			return nil
		})
	}
	g.Wait()

	for _, summary := range results {
		if summary != nil {
			summaries = append(summaries, *summary)
		}
	}

	// Timestamps are formatted to sort correctly as strings
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedDate > summaries[j].CreatedDate
	})
	return summaries, nil
}
