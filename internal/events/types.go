// Package events carries capture lifecycle notifications between components
// without direct dependencies.
package events

import "time"

// Event types. Convention: "category.action".
const (
	TypeCaptureStarted = "capture.started"
	TypeCaptureStopped = "capture.stopped"
	TypeCaptureFailed  = "capture.failed"
	TypeFrameCaptured  = "frame.captured"
	TypeFrameEvicted   = "frame.evicted"
	TypeFrameSkipped   = "frame.skipped"
	TypeFileCreated    = "frame.file_created"
	TypeFileRemoved    = "frame.file_removed"

	wildcard = "*"
)

// Event is a single notification. Data holds type-specific fields and is
// serialized as-is to websocket clients.
type Event struct {
	Type string         `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data,omitempty"`
}

func newEvent(eventType string, data map[string]any) Event {
	return Event{Type: eventType, Time: time.Now(), Data: data}
}

// CaptureStarted is emitted when a loop begins running.
func CaptureStarted(runID, outputDir string, interval time.Duration) Event {
	return newEvent(TypeCaptureStarted, map[string]any{
		"run_id":     runID,
		"output_dir": outputDir,
		"interval":   interval.String(),
	})
}

// CaptureStopped is emitted when a loop exits after cancellation.
func CaptureStopped(runID string, frames int) Event {
	return newEvent(TypeCaptureStopped, map[string]any{"run_id": runID, "frames": frames})
}

// CaptureFailed is emitted when a loop exits on a fatal error.
func CaptureFailed(runID string, err error) Event {
	return newEvent(TypeCaptureFailed, map[string]any{"run_id": runID, "error": err.Error()})
}

// FrameCaptured is emitted after a frame is stored. distance is -1 for the
// first frame of a run.
func FrameCaptured(runID, timestamp, path string, phash uint64, distance int, changed bool) Event {
	return newEvent(TypeFrameCaptured, map[string]any{
		"run_id":    runID,
		"timestamp": timestamp,
		"path":      path,
		"phash":     phash,
		"distance":  distance,
		"changed":   changed,
	})
}

// FrameEvicted is emitted when the store drops its oldest frame.
func FrameEvicted(timestamp, path string) Event {
	return newEvent(TypeFrameEvicted, map[string]any{"timestamp": timestamp, "path": path})
}

// FrameSkipped is emitted when one iteration fails without ending the run.
func FrameSkipped(runID string, err error) Event {
	return newEvent(TypeFrameSkipped, map[string]any{"run_id": runID, "error": err.Error()})
}

// FileCreated is emitted when a frame file appears in the output directory.
func FileCreated(timestamp, path string) Event {
	return newEvent(TypeFileCreated, map[string]any{"timestamp": timestamp, "path": path})
}

// FileRemoved is emitted when a frame file disappears from the output directory.
func FileRemoved(timestamp, path string) Event {
	return newEvent(TypeFileRemoved, map[string]any{"timestamp": timestamp, "path": path})
}
