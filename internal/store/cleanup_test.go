package store

import (
	"os"
	"path/filepath"
	"testing"

	"soundcrate/internal/models"
)

func TestCleanupUnusedSamples(t *testing.T) {
	s := newTestStore(t)

	writeSample := func(name string) {
		if err := os.WriteFile(filepath.Join(s.samplesDir, name), []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeSample("FS_ID_1.ogg")
	writeSample("FS_ID_2.ogg")
	writeSample("FS_ID_3.mp3")
	writeSample("notes.txt") // foreign file, must be left alone

	// Preset A references sample 1, preset B slot 4 references sample 3.
	if err := s.SaveToSlot("a", 0, "", "", "", []models.PadInfo{{PadIndex: 0, FreesoundID: "1", FileName: "FS_ID_1.ogg"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveToSlot("b", 4, "", "", "", []models.PadInfo{{PadIndex: 7, FreesoundID: "3", FileName: "FS_ID_3.mp3"}}); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.CleanupUnusedSamples()
	if err != nil {
		t.Fatalf("CleanupUnusedSamples() error = %v", err)
	}

	if len(deleted) != 1 || deleted[0] != "FS_ID_2.ogg" {
		t.Errorf("deleted = %v, want [FS_ID_2.ogg]", deleted)
	}

	for _, name := range []string{"FS_ID_1.ogg", "FS_ID_3.mp3", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(s.samplesDir, name)); err != nil {
			t.Errorf("%s should still exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(s.samplesDir, "FS_ID_2.ogg")); !os.IsNotExist(err) {
		t.Error("FS_ID_2.ogg should be deleted")
	}
}

func TestCleanupUnusedSamplesNoPresets(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(filepath.Join(s.samplesDir, "FS_ID_9.ogg"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.CleanupUnusedSamples()
	if err != nil {
		t.Fatalf("CleanupUnusedSamples() error = %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("deleted = %v, want the single unreferenced sample", deleted)
	}
}

func TestCleanupUnusedSamplesSkipsCorruptPresets(t *testing.T) {
	s := newTestStore(t)

	os.WriteFile(filepath.Join(s.samplesDir, "FS_ID_1.ogg"), []byte("audio"), 0o644)
	os.WriteFile(s.presetPath("broken"), []byte("{{{"), 0o644)

	// A corrupt preset contributes no references but must not abort the scan.
	deleted, err := s.CleanupUnusedSamples()
	if err != nil {
		t.Fatalf("CleanupUnusedSamples() error = %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("deleted = %v, want 1 entry", deleted)
	}
}
