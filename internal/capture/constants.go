// Package capture runs the periodic screen capture loop and controls its lifecycle.
package capture

import "time"

// Capture configuration constants
const (
	// DefaultInterval is the pause between two captures.
	DefaultInterval = 2 * time.Second

	// Default output directory, relative to the working directory
	DefaultOutputDir = "frames"

	// Output directory permissions
	dirPerm = 0o755
)

// User-facing result messages
const (
	MsgStarted        = "Screen capture started"
	MsgStopped        = "Screen capture stopped"
	MsgAlreadyRunning = "Capture already in progress"
	MsgNotRunning     = "No capture in progress"
)
