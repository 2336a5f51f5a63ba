package models

import "io"

const (
	// NumPads is the number of pads on the sampler grid.
	NumPads = 16

	// MaxSlots is the number of slots a preset file can hold.
	MaxSlots = 8

	// TimestampFormat is used for all persisted timestamps. It sorts
	// correctly as a plain string, which getAvailablePresets relies on.
	TimestampFormat = "2006-01-02 15:04:05"
)

// SoundDescriptor describes one remotely available audio item as returned
// by the search API. Descriptors are consumed by the download manager and
// never persisted directly.
type SoundDescriptor struct {
	ID              string  `json:"id"`
	PreviewURL      string  `json:"preview_url"`
	Name            string  `json:"name"`
	Author          string  `json:"author"`
	License         string  `json:"license"`
	DurationSeconds float64 `json:"duration"`
	FileSizeBytes   int64   `json:"file_size"`
	Tags            string  `json:"tags"`
	Description     string  `json:"description"`
}

// DownloadProgress is the progress snapshot handed to listeners. The
// download manager owns the live record; listeners always receive a copy.
type DownloadProgress struct {
	TotalFiles                 int     `json:"total_files"`
	CompletedFiles             int     `json:"completed_files"`
	CurrentFileDownloadedBytes int64   `json:"current_file_downloaded_bytes"`
	CurrentFileTotalBytes      int64   `json:"current_file_total_bytes"`
	OverallProgress            float64 `json:"overall_progress"`
	CurrentFileName            string  `json:"current_file_name"`
}

// DownloadedFileInfo records the provenance of one successfully downloaded
// file. Immutable after creation; aggregated into the batch result.
type DownloadedFileInfo struct {
	FileName        string  `json:"file_name"`
	OriginalName    string  `json:"original_name"`
	FreesoundID     string  `json:"freesound_id"`
	SearchQuery     string  `json:"search_query"`
	Author          string  `json:"author"`
	License         string  `json:"license"`
	DurationSeconds float64 `json:"duration"`
	FileSizeBytes   int64   `json:"file_size"`
	DownloadedAt    string  `json:"downloaded_at"`
	PadIndex        int     `json:"pad_index"`
}

// PadInfo maps one grid position to a downloaded file plus its provenance.
type PadInfo struct {
	PadIndex        int     `json:"pad_index"`
	FreesoundID     string  `json:"freesound_id"`
	FileName        string  `json:"file_name"`
	OriginalName    string  `json:"original_name"`
	Author          string  `json:"author"`
	License         string  `json:"license"`
	SearchQuery     string  `json:"search_query"`
	DurationSeconds float64 `json:"duration"`
	FileSizeBytes   int64   `json:"file_size"`
	DownloadedAt    string  `json:"downloaded_at"`
	FreesoundURL    string  `json:"freesound_url,omitempty"`
}

// Valid reports whether the record may be loaded onto the grid.
// Invalid records are dropped silently on load.
func (p PadInfo) Valid() bool {
	return p.FreesoundID != "" && p.PadIndex >= 0 && p.PadIndex < NumPads
}

// BookmarkEntry is one user-bookmarked sound. FreesoundID is the unique key.
type BookmarkEntry struct {
	FreesoundID     string  `json:"freesound_id"`
	SampleName      string  `json:"sample_name"`
	AuthorName      string  `json:"author_name"`
	LicenseType     string  `json:"license_type"`
	SearchQuery     string  `json:"search_query"`
	FileName        string  `json:"file_name"`
	DurationSeconds float64 `json:"duration"`
	FileSizeBytes   int64   `json:"file_size"`
	BookmarkedAt    string  `json:"bookmarked_at"`
	FreesoundURL    string  `json:"freesound_url"`
	Tags            string  `json:"tags"`
	Description     string  `json:"description"`
}

// CountingWriter wraps an io.Writer, counts bytes written, and invokes an
// optional hook after each write. The download manager uses the hook to
// publish per-chunk byte progress.
type CountingWriter struct {
	Writer  io.Writer
	Count   int64
	OnWrite func(total int64)
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.Count += int64(n)
	if cw.OnWrite != nil && n > 0 {
		cw.OnWrite(cw.Count)
	}
	return n, err
}
