// Package diskwatch reports frame files appearing in or vanishing from the output directory.
package diskwatch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/events"
	"github.com/GriffinCanCode/framecap/internal/frames"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// Watcher publishes file events for frame files in a single directory.
// Files that do not follow the frame naming scheme are ignored, which also
// hides the temp files used during persistence.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	bus     events.Publisher
}

// New creates the directory if needed and starts watching it.
// Events queue until Run is called.
func New(dir string, bus events.Publisher) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create watched directory").WithMetadata("dir", dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create fs watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "watch directory").WithMetadata("dir", dir)
	}
	return &Watcher{dir: dir, watcher: fw, bus: bus}, nil
}

// Run dispatches filesystem events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	log := trace.Logger(ctx).With("dir", w.dir)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("output directory watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	ts, ok := frames.ParseFileName(filepath.Base(ev.Name))
	if !ok {
		return
	}
	switch {
	case ev.Has(fsnotify.Create):
		w.bus.Publish(events.FileCreated(ts, ev.Name))
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.bus.Publish(events.FileRemoved(ts, ev.Name))
	}
}
