package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"soundcrate/internal/models"
)

// loadBookmarksLocked reads the bookmarks document. A missing or corrupt
// file yields a fresh empty document, never an error: corruption is
// treated as start-fresh for the next write.
func (s *Store) loadBookmarksLocked() models.BookmarksDocument {
	var doc models.BookmarksDocument
	err := readDocument(s.bookmarksFile, &doc)
	if err == nil {
		return doc
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("bookmarks document unreadable, starting fresh", zap.Error(err))
	}
	return models.BookmarksDocument{
		FileMetadata: models.BookmarkFileMetadata{
			Version:    documentVersion,
			CreatedAt:  now(),
			PluginName: pluginName,
		},
	}
}

// writeBookmarksLocked updates the metadata counters and rewrites the
// whole document.
func (s *Store) writeBookmarksLocked(doc models.BookmarksDocument) error {
	doc.FileMetadata.LastModified = now()
	doc.FileMetadata.TotalBookmarks = len(doc.Bookmarks)
	if doc.FileMetadata.Version == "" {
		doc.FileMetadata.Version = documentVersion
	}
	if doc.FileMetadata.PluginName == "" {
		doc.FileMetadata.PluginName = pluginName
	}
	if doc.FileMetadata.CreatedAt == "" {
		doc.FileMetadata.CreatedAt = now()
	}
	return writeDocument(s.bookmarksFile, doc)
}

// AddBookmark records a bookmarked sound. Adding an id that is already
// bookmarked is a no-op success. An empty FreesoundID is rejected.
func (s *Store) AddBookmark(entry models.BookmarkEntry) (err error) {
	start := time.Now()
	defer func() { s.observe("bookmark_add", start, err) }()

	if entry.FreesoundID == "" {
		return fmt.Errorf("%w: empty freesound id", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadBookmarksLocked()
	for _, existing := range doc.Bookmarks {
		if existing.FreesoundID == entry.FreesoundID {
			return nil // idempotent
		}
	}

	if entry.BookmarkedAt == "" {
		entry.BookmarkedAt = now()
	}
	doc.Bookmarks = append(doc.Bookmarks, entry)

	if err = s.writeBookmarksLocked(doc); err != nil {
		return err
	}
	s.logger.Info("bookmark added", zap.String("id", entry.FreesoundID), zap.String("name", entry.SampleName))
	return nil
}

// RemoveBookmark deletes the bookmark for id. Removing an id that is not
// bookmarked returns ErrNotFound and leaves the store unchanged.
func (s *Store) RemoveBookmark(id string) (err error) {
	start := time.Now()
	defer func() { s.observe("bookmark_remove", start, err) }()

	if id == "" {
		return fmt.Errorf("%w: empty freesound id", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadBookmarksLocked()
	for i, existing := range doc.Bookmarks {
		if existing.FreesoundID == id {
			doc.Bookmarks = append(doc.Bookmarks[:i], doc.Bookmarks[i+1:]...)
			if err = s.writeBookmarksLocked(doc); err != nil {
				return err
			}
			s.logger.Info("bookmark removed", zap.String("id", id))
			return nil
		}
	}
	return fmt.Errorf("%w: bookmark %s", ErrNotFound, id)
}

// IsBookmarked reports whether id is bookmarked.
func (s *Store) IsBookmarked(id string) bool {
	_, ok := s.GetBookmark(id)
	return ok
}

// GetBookmark returns the bookmark for id, if present.
func (s *Store) GetBookmark(id string) (models.BookmarkEntry, bool) {
	if id == "" {
		return models.BookmarkEntry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadBookmarksLocked()
	for _, entry := range doc.Bookmarks {
		if entry.FreesoundID == id {
			return entry, true
		}
	}
	return models.BookmarkEntry{}, false
}

// GetAllBookmarks returns a copy of every bookmark, consistent with the
// last completed write.
func (s *Store) GetAllBookmarks() []models.BookmarkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadBookmarksLocked()
	return append([]models.BookmarkEntry(nil), doc.Bookmarks...)
}

// CleanupMissingFiles drops bookmarks whose referenced sample file no
// longer exists in the samples directory, rewriting only if the set
// changed. Returns the number of entries removed.
func (s *Store) CleanupMissingFiles() (removed int, err error) {
	start := time.Now()
	defer func() { s.observe("bookmark_cleanup", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadBookmarksLocked()
	kept := doc.Bookmarks[:0]
	for _, entry := range doc.Bookmarks {
		if entry.FileName == "" {
			kept = append(kept, entry)
			continue
		}
		if _, statErr := os.Stat(filepath.Join(s.samplesDir, entry.FileName)); statErr == nil {
			kept = append(kept, entry)
		} else {
			removed++
			s.logger.Info("dropping bookmark with missing sample",
				zap.String("id", entry.FreesoundID),
				zap.String("file", entry.FileName))
		}
	}

	if removed == 0 {
		return 0, nil
	}

	doc.Bookmarks = kept
	if err = s.writeBookmarksLocked(doc); err != nil {
		return 0, err
	}
	return removed, nil
}
