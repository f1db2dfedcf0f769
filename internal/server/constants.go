// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-client queue of events waiting to be written; overflow drops events
	WSSendBuffer = 64

	// Upper bound on a single websocket write
	WSWriteTimeout = 5 * time.Second

	// CORS preflight answer
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type"
)

// Response status values
const (
	statusSuccess = "success"
	statusError   = "error"
	statusOK      = "ok"
)
