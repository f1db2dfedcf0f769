// Package query serves read-only views of captured frames.
package query

import (
	"github.com/GriffinCanCode/framecap/internal/frames"
)

// DefaultRecentLimit is how many frames RecentFrames returns.
const DefaultRecentLimit = 6

// FrameRecord is the transport form of a frame.
type FrameRecord struct {
	Timestamp string `json:"timestamp"`
	Image     string `json:"image"`
	Path      string `json:"path"`
}

// Service answers frame queries from memory and from the output directory.
type Service struct {
	store       *frames.Store
	outputDir   string
	recentLimit int
}

// New creates a query service.
func New(store *frames.Store, outputDir string, recentLimit int) *Service {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Service{store: store, outputDir: outputDir, recentLimit: recentLimit}
}

// RecentFrames returns up to the recent limit of in-memory frames, oldest first.
func (s *Service) RecentFrames() []FrameRecord {
	return toRecords(s.store.Recent(s.recentLimit))
}

// AllFrames returns every frame file in the output directory, newest first.
// It reads the disk, not memory, so it includes frames from earlier runs.
func (s *Service) AllFrames() ([]FrameRecord, error) {
	fs, err := frames.SnapshotFromDisk(s.outputDir)
	if err != nil {
		return nil, err
	}
	return toRecords(fs), nil
}

func toRecords(fs []frames.Frame) []FrameRecord {
	out := make([]FrameRecord, len(fs))
	for i, f := range fs {
		out[i] = FrameRecord{Timestamp: f.Timestamp, Image: f.Image, Path: f.Path}
	}
	return out
}
