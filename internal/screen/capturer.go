// Package screen provides platform-agnostic screen capture
package screen

import (
	"context"
	"image"
	"time"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
)

// Backend is the platform screenshot API.
type Backend interface {
	// Displays lists display bounds in virtual-screen coordinates, primary first.
	Displays() ([]image.Rectangle, error)
	// Grab returns the raw pixels inside rect.
	Grab(rect image.Rectangle) (*image.RGBA, error)
}

// Capturer grabs one configured display through a Backend.
type Capturer struct {
	backend Backend
	display int
	timeout time.Duration
}

// NewCapturer creates a capturer for the display at index display.
// A positive timeout bounds each grab; zero waits for the backend indefinitely.
func NewCapturer(backend Backend, display int, timeout time.Duration) *Capturer {
	return &Capturer{backend: backend, display: display, timeout: timeout}
}

// Region resolves the configured display's bounds.
func (c *Capturer) Region() (image.Rectangle, error) {
	displays, err := c.backend.Displays()
	if err != nil {
		return image.Rectangle{}, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "list displays")
	}
	if c.display >= len(displays) {
		return image.Rectangle{}, apperrors.Newf(apperrors.CodeCaptureFailed, "display %d not found (%d available)", c.display, len(displays))
	}
	region := displays[c.display]
	if region.Empty() {
		return image.Rectangle{}, apperrors.Newf(apperrors.CodeCaptureFailed, "display %d has empty bounds", c.display)
	}
	return region, nil
}

// Capture grabs the configured display. Every failure is a CodeCaptureFailed AppError.
// Cancelling ctx does not interrupt a grab in progress; only the timeout does.
func (c *Capturer) Capture(ctx context.Context) (*image.RGBA, error) {
	region, err := c.Region()
	if err != nil {
		return nil, err
	}

	if c.timeout <= 0 {
		return c.grab(region)
	}

	type result struct {
		img *image.RGBA
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := c.grab(region)
		ch <- result{img, err}
	}()

	timeoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	select {
	case r := <-ch:
		return r.img, r.err
	case <-timeoutCtx.Done():
		return nil, apperrors.Wrapf(timeoutCtx.Err(), apperrors.CodeCaptureFailed, "screen grab exceeded %s", c.timeout)
	}
}

func (c *Capturer) grab(region image.Rectangle) (*image.RGBA, error) {
	img, err := c.backend.Grab(region)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "grab display").
			WithMetadata("region", region.String())
	}
	if img == nil {
		return nil, apperrors.New(apperrors.CodeCaptureFailed, "backend returned no image")
	}
	return img, nil
}
