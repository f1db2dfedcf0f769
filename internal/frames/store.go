package frames

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/GriffinCanCode/framecap/internal/resilience"
	"github.com/GriffinCanCode/framecap/internal/syncx"
)

// Store is the bounded, insertion-ordered window of recent frames.
// Every insert that overflows capacity evicts the oldest frame and removes its file.
type Store struct {
	capacity int
	frames   *syncx.RWGuard[[]Frame]
	remove   func(string) error
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker
}

// NewStore creates a store holding at most capacity frames.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		frames:   syncx.NewGuard(make([]Frame, 0, capacity+1)),
		remove:   os.Remove,
		retry:    resilience.FileRetryConfig(),
		breaker:  resilience.NewBreaker(resilience.FileBreakerConfig("frame-eviction")),
	}
}

// Capacity returns the configured bound.
func (s *Store) Capacity() int { return s.capacity }

// Insert appends f and returns the evicted frame, if any.
// The evicted frame's file is removed before Insert returns; removal failures
// are logged and otherwise ignored. After repeated failures removal is skipped
// for a cool-down period so a broken disk does not slow every capture.
func (s *Store) Insert(ctx context.Context, f Frame) *Frame {
	evicted := syncx.Mutate(s.frames, func(frames *[]Frame) *Frame {
		*frames = append(*frames, f)
		if len(*frames) <= s.capacity {
			return nil
		}
		head := (*frames)[0]
		(*frames)[0] = Frame{} // drop the image reference before reslicing
		*frames = (*frames)[1:]
		return &head
	})

	if evicted != nil {
		s.removeFile(ctx, evicted.Path)
	}
	return evicted
}

func (s *Store) removeFile(ctx context.Context, path string) {
	err := s.breaker.Do(func() error {
		return resilience.Retry(context.WithoutCancel(ctx), s.retry, func() error {
			return s.remove(path)
		})
	}, isRemoveFailure)

	switch {
	case err == nil:
		slog.Debug("evicted frame file removed", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("evicted frame file already gone", "path", path)
	case errors.Is(err, resilience.ErrOpen):
		slog.Debug("skipping evicted frame file removal, deletes keep failing", "path", path)
	default:
		slog.Warn("failed to remove evicted frame file", "path", path, "error", err)
	}
}

// A file that is already gone is the outcome removal wanted.
func isRemoveFailure(err error) bool {
	return !errors.Is(err, fs.ErrNotExist)
}

// Recent returns the last min(n, Len()) frames, oldest first.
func (s *Store) Recent(n int) []Frame {
	return syncx.View(s.frames, func(frames []Frame) []Frame {
		if n <= 0 {
			return []Frame{}
		}
		start := max(len(frames)-n, 0)
		out := make([]Frame, len(frames)-start)
		copy(out, frames[start:])
		return out
	})
}

// All returns a copy of every frame in memory, oldest first.
func (s *Store) All() []Frame {
	return syncx.View(s.frames, func(frames []Frame) []Frame {
		out := make([]Frame, len(frames))
		copy(out, frames)
		return out
	})
}

// Len returns the number of frames in memory.
func (s *Store) Len() int {
	return syncx.View(s.frames, func(frames []Frame) int { return len(frames) })
}
