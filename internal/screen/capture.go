package screen

import (
	"image"

	"github.com/vova616/screenshot"
)

// systemBackend captures through the OS screenshot API.
// The library only exposes the primary display, so Displays has one entry.
type systemBackend struct{}

// System returns the native screenshot backend.
func System() Backend { return systemBackend{} }

func (systemBackend) Displays() ([]image.Rectangle, error) {
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, err
	}
	return []image.Rectangle{rect}, nil
}

func (systemBackend) Grab(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}
