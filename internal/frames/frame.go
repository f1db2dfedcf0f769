// Package frames holds captured frames in memory and on disk.
package frames

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCapacity is how many frames the in-memory window keeps.
	DefaultCapacity = 50

	// TimestampLayout names frames at second resolution (YYYYMMDD_HHMMSS).
	TimestampLayout = "20060102_150405"

	filePrefix = "frame_"
	fileExt    = ".png"
)

// Frame is one captured screenshot. Image holds the base64 PNG.
type Frame struct {
	Timestamp  string    `json:"timestamp"`
	Image      string    `json:"image"`
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"-"`
}

// Timestamp formats a capture time as a frame identifier.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FileName returns the on-disk name for a frame timestamp.
func FileName(ts string) string {
	return filePrefix + ts + fileExt
}

// PathFor returns the file a frame with timestamp ts is persisted to.
func PathFor(dir, ts string) string {
	return filepath.Join(dir, FileName(ts))
}

// ParseFileName extracts the timestamp from a frame file name.
// Names that are not frame_<YYYYMMDD_HHMMSS>.png are rejected.
func ParseFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	if _, err := time.ParseInLocation(TimestampLayout, ts, time.Local); err != nil {
		return "", false
	}
	return ts, true
}
