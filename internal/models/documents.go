package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BookmarkFileMetadata is the header of the bookmarks document.
type BookmarkFileMetadata struct {
	Version        string `json:"version"`
	CreatedAt      string `json:"created_at"`
	LastModified   string `json:"last_modified"`
	PluginName     string `json:"plugin_name"`
	TotalBookmarks int    `json:"total_bookmarks"`
}

// BookmarksDocument is the single on-disk bookmarks file.
type BookmarksDocument struct {
	FileMetadata BookmarkFileMetadata `json:"file_metadata"`
	Bookmarks    []BookmarkEntry      `json:"bookmarks"`
}

// PresetInfo describes the preset file as a whole.
type PresetInfo struct {
	Name        string `json:"name"`
	CreatedDate string `json:"created_date"`
	Description string `json:"description,omitempty"`
}

// PresetFileMetadata is the header of a preset document.
type PresetFileMetadata struct {
	Version        string `json:"version"`
	LastModified   string `json:"last_modified"`
	PluginName     string `json:"plugin_name"`
	TotalSlotsUsed int    `json:"total_slots_used"`
}

// SlotInfo describes one slot inside a preset file.
type SlotInfo struct {
	Name        string `json:"name"`
	SearchQuery string `json:"search_query,omitempty"`
	Description string `json:"description,omitempty"`
	SampleCount int    `json:"sample_count"`
	CreatedAt   string `json:"created_at"`
}

// PresetSlot holds one slot's info and its pad records. Older documents
// used "pad_mapping" for the sample list; both spellings are accepted on
// load and "samples" is written.
type PresetSlot struct {
	SlotInfo SlotInfo  `json:"slot_info"`
	Samples  []PadInfo `json:"samples"`
}

// UnmarshalJSON accepts both the "samples" and legacy "pad_mapping" keys,
// and both "created_at" and legacy "created_date" in slot_info.
func (s *PresetSlot) UnmarshalJSON(data []byte) error {
	var raw struct {
		SlotInfo   json.RawMessage `json:"slot_info"`
		Samples    []PadInfo       `json:"samples"`
		PadMapping []PadInfo       `json:"pad_mapping"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.SlotInfo) > 0 {
		var info struct {
			Name        string `json:"name"`
			SearchQuery string `json:"search_query"`
			Description string `json:"description"`
			SampleCount int    `json:"sample_count"`
			CreatedAt   string `json:"created_at"`
			CreatedDate string `json:"created_date"`
		}
		if err := json.Unmarshal(raw.SlotInfo, &info); err != nil {
			return err
		}
		s.SlotInfo = SlotInfo{
			Name:        info.Name,
			SearchQuery: info.SearchQuery,
			Description: info.Description,
			SampleCount: info.SampleCount,
			CreatedAt:   info.CreatedAt,
		}
		if s.SlotInfo.CreatedAt == "" {
			s.SlotInfo.CreatedAt = info.CreatedDate
		}
	}

	s.Samples = raw.Samples
	if s.Samples == nil {
		s.Samples = raw.PadMapping
	}
	return nil
}

// PresetDocument is one preset file: a preset_info and file_metadata header
// plus up to MaxSlots slots stored under dynamic "slot_<index>" keys.
type PresetDocument struct {
	PresetInfo   PresetInfo
	FileMetadata PresetFileMetadata
	Slots        map[int]PresetSlot
}

// SlotKey returns the stable document key for a slot index.
func SlotKey(index int) string {
	return fmt.Sprintf("slot_%d", index)
}

// MarshalJSON flattens the slot map back into "slot_<index>" keys.
func (d PresetDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Slots)+2)
	out["preset_info"] = d.PresetInfo
	out["file_metadata"] = d.FileMetadata
	for index, slot := range d.Slots {
		out[SlotKey(index)] = slot
	}
	return json.Marshal(out)
}

// UnmarshalJSON collects "slot_<index>" keys into the slot map. Slot keys
// that fail to parse are dropped rather than failing the whole document.
func (d *PresetDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Slots = make(map[int]PresetSlot)

	for key, value := range raw {
		switch {
		case key == "preset_info":
			if err := json.Unmarshal(value, &d.PresetInfo); err != nil {
				return err
			}
		case key == "file_metadata":
			if err := json.Unmarshal(value, &d.FileMetadata); err != nil {
				return err
			}
		case strings.HasPrefix(key, "slot_"):
			index, err := strconv.Atoi(strings.TrimPrefix(key, "slot_"))
			if err != nil || index < 0 || index >= MaxSlots {
				continue
			}
			var slot PresetSlot
			if err := json.Unmarshal(value, &slot); err != nil {
				continue
			}
			d.Slots[index] = slot
		}
	}
	return nil
}
