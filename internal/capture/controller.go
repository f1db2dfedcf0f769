package capture

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// Status is a point-in-time view of the controller.
type Status struct {
	IsCapturing bool `json:"is_capturing"`
	FramesCount int  `json:"frames_count"`
}

// run is one spawned loop. done closes when the loop goroutine returns.
type run struct {
	loop   *Loop
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *run) exited() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Controller owns the Idle/Running state and at most one live Loop.
type Controller struct {
	deps Deps
	opts Options

	mu      sync.Mutex // serializes Start/Stop transitions
	active  *run
	current atomic.Pointer[run] // mirrors active for Status without taking mu
}

// NewController creates an idle controller.
func NewController(deps Deps, opts Options) *Controller {
	return &Controller{deps: deps, opts: opts.withDefaults()}
}

// Start spawns a new loop and returns immediately.
// Returns CodeAlreadyRunning if a loop is live.
func (c *Controller) Start(ctx context.Context) error {
	log := trace.Logger(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if !c.active.exited() {
			return apperrors.New(apperrors.CodeAlreadyRunning, MsgAlreadyRunning)
		}
		c.reap()
	}

	if err := os.MkdirAll(c.opts.OutputDir, dirPerm); err != nil {
		return apperrors.Wrap(err, apperrors.CodePersistFailed, "create output directory").
			WithMetadata("dir", c.opts.OutputDir)
	}

	loop := NewLoop(c.deps, c.opts)
	// The loop outlives the request that started it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{loop: loop, cancel: cancel, done: make(chan struct{})}
	c.active = r
	c.current.Store(r)

	go c.supervise(loopCtx, r)

	log.Info("capture started", "run_id", loop.ID())
	return nil
}

// supervise runs the loop and clears controller state if it exits on its own.
// done is closed before mu is taken so Stop can wait on it while holding mu.
func (c *Controller) supervise(ctx context.Context, r *run) {
	_ = r.loop.Run(ctx) // failures are logged and published by the loop
	r.cancel()
	close(r.done)

	c.mu.Lock()
	if c.active == r {
		c.reap()
	}
	c.mu.Unlock()
}

// reap clears the active run. Caller holds mu.
func (c *Controller) reap() {
	c.active = nil
	c.current.Store(nil)
}

// Stop cancels the live loop and waits for its in-flight iteration to finish.
// Returns CodeNotRunning if no loop is live.
func (c *Controller) Stop(ctx context.Context) error {
	log := trace.Logger(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.active
	if r == nil {
		return apperrors.New(apperrors.CodeNotRunning, MsgNotRunning)
	}
	if r.exited() {
		c.reap()
		return apperrors.New(apperrors.CodeNotRunning, MsgNotRunning)
	}

	r.cancel()
	<-r.done
	c.reap()

	log.Info("capture stopped", "run_id", r.loop.ID(), "frames", r.loop.Captured(), "skipped", r.loop.Skipped())
	return nil
}

// Status reports whether a loop is live and how many frames are in memory.
// A loop that has exited reports false even before it is reaped.
func (c *Controller) Status() Status {
	r := c.current.Load()
	return Status{
		IsCapturing: r != nil && !r.exited(),
		FramesCount: c.deps.Store.Len(),
	}
}

// Close stops any live loop. Used at shutdown.
func (c *Controller) Close() {
	if err := c.Stop(context.Background()); err != nil && !apperrors.IsCode(err, apperrors.CodeNotRunning) {
		trace.Logger(context.Background()).Warn("stop on close failed", "error", err)
	}
}
