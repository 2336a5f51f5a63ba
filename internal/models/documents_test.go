package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPresetDocumentSlotKeys(t *testing.T) {
	doc := PresetDocument{
		PresetInfo:   PresetInfo{Name: "drums", CreatedDate: "2026-01-02 03:04:05"},
		FileMetadata: PresetFileMetadata{Version: "1.0", PluginName: "soundcrate", TotalSlotsUsed: 2},
		Slots: map[int]PresetSlot{
			0: {SlotInfo: SlotInfo{Name: "kit a", SampleCount: 1}, Samples: []PadInfo{{PadIndex: 0, FreesoundID: "1"}}},
			7: {SlotInfo: SlotInfo{Name: "kit b", SampleCount: 1}, Samples: []PadInfo{{PadIndex: 5, FreesoundID: "2"}}},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, key := range []string{`"slot_0"`, `"slot_7"`, `"preset_info"`, `"file_metadata"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("marshaled document missing key %s", key)
		}
	}

	var parsed PresetDocument
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(parsed.Slots) != 2 {
		t.Fatalf("Slots = %d, want 2", len(parsed.Slots))
	}
	if parsed.Slots[7].Samples[0].FreesoundID != "2" {
		t.Errorf("slot 7 sample id = %q, want %q", parsed.Slots[7].Samples[0].FreesoundID, "2")
	}
	if parsed.PresetInfo.Name != "drums" {
		t.Errorf("preset name = %q, want %q", parsed.PresetInfo.Name, "drums")
	}
}

func TestPresetDocumentDropsBadSlotKeys(t *testing.T) {
	raw := `{
		"preset_info": {"name": "p", "created_date": "2026-01-01 00:00:00"},
		"file_metadata": {"version": "1.0"},
		"slot_0": {"slot_info": {"name": "ok"}, "samples": []},
		"slot_abc": {"slot_info": {"name": "bad index"}},
		"slot_99": {"slot_info": {"name": "out of range"}},
		"slot_1": "not an object"
	}`

	var doc PresetDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(doc.Slots) != 1 {
		t.Fatalf("Slots = %d, want 1 (bad keys dropped)", len(doc.Slots))
	}
	if _, ok := doc.Slots[0]; !ok {
		t.Error("slot_0 should survive")
	}
}

func TestPresetSlotLegacyKeys(t *testing.T) {
	raw := `{
		"slot_info": {"name": "old", "created_date": "2025-05-05 05:05:05", "sample_count": 1},
		"pad_mapping": [{"pad_index": 2, "freesound_id": "77"}]
	}`

	var slot PresetSlot
	if err := json.Unmarshal([]byte(raw), &slot); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if slot.SlotInfo.CreatedAt != "2025-05-05 05:05:05" {
		t.Errorf("CreatedAt = %q, want legacy created_date value", slot.SlotInfo.CreatedAt)
	}
	if len(slot.Samples) != 1 || slot.Samples[0].FreesoundID != "77" {
		t.Errorf("Samples = %+v, want one pad from pad_mapping", slot.Samples)
	}
}

func TestCountingWriter(t *testing.T) {
	var sink strings.Builder
	var lastTotal int64

	cw := &CountingWriter{
		Writer:  &sink,
		OnWrite: func(total int64) { lastTotal = total },
	}

	cw.Write([]byte("hello"))
	cw.Write([]byte(" world"))

	if cw.Count != 11 {
		t.Errorf("Count = %d, want 11", cw.Count)
	}
	if lastTotal != 11 {
		t.Errorf("OnWrite total = %d, want 11", lastTotal)
	}
	if sink.String() != "hello world" {
		t.Errorf("written = %q", sink.String())
	}
}
