package trace

import (
	"context"
	"log/slog"
	"time"
)

// Span times one HTTP request, gRPC call or capture iteration and logs
// itself when it ends.
type Span struct {
	Name  string
	Trace Context

	start    time.Time
	duration time.Duration
	attrs    []slog.Attr
	err      error
}

// StartSpan opens a span as a child of the trace in ctx, or as a new trace.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tc := newRoot()
	if parent, ok := FromContext(ctx); ok {
		tc = parent.child()
	}
	s := &Span{Name: name, Trace: tc, start: time.Now()}
	return WithContext(ctx, tc), s
}

// SetAttr records an attribute logged with the span.
func (s *Span) SetAttr(key string, val any) {
	s.attrs = append(s.attrs, slog.Any(key, val))
}

// Fail marks the span as failed; End then logs at warn.
func (s *Span) Fail(err error) {
	s.err = err
}

// End fixes the duration and logs the span: debug on success, warn on failure.
func (s *Span) End() {
	s.duration = time.Since(s.start)
	level := slog.LevelDebug
	if s.err != nil {
		level = slog.LevelWarn
	}
	slog.Default().LogAttrs(context.Background(), level, s.Name, slog.Any("span", s))
}

// Duration is zero until End.
func (s *Span) Duration() time.Duration { return s.duration }

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	attrs := append(s.Trace.LogAttrs(), slog.Duration("duration", s.duration))
	attrs = append(attrs, s.attrs...)
	if s.err != nil {
		attrs = append(attrs, slog.String("error", s.err.Error()))
	}
	return slog.GroupValue(attrs...)
}
