package capture

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/events"
	"github.com/GriffinCanCode/framecap/internal/frames"
	"github.com/GriffinCanCode/framecap/internal/imagecodec"
	"github.com/GriffinCanCode/framecap/internal/screen"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// Grabber takes one screenshot. *screen.Capturer implements it.
type Grabber interface {
	Capture(ctx context.Context) (*image.RGBA, error)
}

// Deps are the collaborators shared by every loop.
type Deps struct {
	Grabber Grabber
	Encoder imagecodec.Encoder
	Store   *frames.Store
	Events  events.Publisher
}

// Options tune a loop.
type Options struct {
	OutputDir string
	Interval  time.Duration
	Now       func() time.Time // capture clock, time.Now when nil
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Loop captures, persists and stores one frame per interval until cancelled
// or until a capture fails. A Loop runs once; every start builds a new one.
type Loop struct {
	id       string
	deps     Deps
	opts     Options
	detector screen.ChangeDetector
	captured int
	skipped  int
}

// NewLoop creates a loop with a fresh run ID.
func NewLoop(deps Deps, opts Options) *Loop {
	if deps.Events == nil {
		deps.Events = events.Discard
	}
	return &Loop{id: uuid.NewString(), deps: deps, opts: opts.withDefaults()}
}

// ID returns the run ID attached to this loop's logs and events.
func (l *Loop) ID() string { return l.id }

// Captured returns the number of frames this loop has stored.
// Only valid after Run returns.
func (l *Loop) Captured() int { return l.captured }

// Skipped returns the number of iterations that failed without ending the run.
// Only valid after Run returns.
func (l *Loop) Skipped() int { return l.skipped }

// Run blocks until ctx is cancelled (returns nil) or an iteration fails
// fatally (returns the error). Encode failures skip the frame and keep running.
// Logs and iteration spans join the trace in ctx, tagged with the run ID.
func (l *Loop) Run(ctx context.Context) error {
	ctx = trace.WithRun(ctx, l.id)
	log := trace.Logger(ctx)
	log.Info("capture loop started",
		"output_dir", l.opts.OutputDir, "interval", l.opts.Interval, "capacity", l.deps.Store.Capacity())
	l.deps.Events.Publish(events.CaptureStarted(l.id, l.opts.OutputDir, l.opts.Interval))

	for ctx.Err() == nil {
		if err := l.iterate(ctx); err != nil {
			if apperrors.IsFatal(err) {
				log.Error("capture loop failed", "error", err, "frames", l.captured)
				l.deps.Events.Publish(events.CaptureFailed(l.id, err))
				return err
			}
			l.skipped++
			l.deps.Events.Publish(events.FrameSkipped(l.id, err))
		}

		l.wait(ctx)
	}

	log.Info("capture loop stopped", "frames", l.captured, "skipped", l.skipped)
	l.deps.Events.Publish(events.CaptureStopped(l.id, l.captured))
	return nil
}

// wait sleeps for the interval, returning early on cancellation.
func (l *Loop) wait(ctx context.Context) {
	timer := time.NewTimer(l.opts.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *Loop) iterate(ctx context.Context) (err error) {
	ctx, span := trace.StartSpan(ctx, "capture.iterate")
	span.SetAttr("seq", l.captured+l.skipped+1)
	defer func() {
		if err != nil {
			span.Fail(err)
		}
		span.End()
	}()

	img, err := l.deps.Grabber.Capture(ctx)
	if err != nil {
		return err
	}
	capturedAt := l.opts.Now()

	data, err := l.deps.Encoder.Encode(img)
	if err != nil {
		return err
	}

	ts := frames.Timestamp(capturedAt)
	path, err := frames.Persist(l.opts.OutputDir, ts, data)
	if err != nil {
		return err
	}
	span.SetAttr("timestamp", ts)
	span.SetAttr("bytes", len(data))

	frame := frames.Frame{
		Timestamp:  ts,
		Image:      imagecodec.Base64(data),
		Path:       path,
		CapturedAt: capturedAt,
	}
	evicted := l.deps.Store.Insert(ctx, frame)
	l.captured++

	obs, herr := l.detector.Observe(img)
	if herr != nil {
		trace.Logger(ctx).Debug("fingerprint failed", "error", herr)
		obs.Distance = -1
	}
	span.SetAttr("distance", obs.Distance)
	l.deps.Events.Publish(events.FrameCaptured(l.id, ts, path, obs.Hash, obs.Distance, obs.Changed))

	if evicted != nil {
		span.SetAttr("evicted", evicted.Timestamp)
		l.deps.Events.Publish(events.FrameEvicted(evicted.Timestamp, evicted.Path))
	}
	return nil
}
