package models

import (
	"net/url"
	"path"
	"strings"
)

// samplePrefix is the deterministic filename prefix for downloaded samples.
// Encoding the remote id in the name makes existence checks and
// de-duplication a pure filename lookup.
const samplePrefix = "FS_ID_"

// SampleFileName derives the deterministic local filename for a sound id.
// The extension comes from the preview URL path, defaulting to ogg, so the
// same id always maps to the same file and re-downloads overwrite.
func SampleFileName(id, previewURL string) string {
	ext := "ogg"
	if u, err := url.Parse(previewURL); err == nil {
		if e := strings.TrimPrefix(path.Ext(u.Path), "."); e != "" {
			ext = strings.ToLower(e)
		}
	}
	return samplePrefix + id + "." + ext
}

// SampleIDFromFileName extracts the embedded sound id from a sample
// filename, or "" if the name does not follow the convention.
func SampleIDFromFileName(fileName string) string {
	if !strings.HasPrefix(fileName, samplePrefix) {
		return ""
	}
	rest := strings.TrimPrefix(fileName, samplePrefix)
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		return rest[:dot]
	}
	return rest
}
