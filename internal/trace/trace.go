// Package trace correlates logs across HTTP requests, gRPC calls and capture runs.
//
// A capture loop inherits the trace of the request that started it and tags it
// with its run ID, so every iteration span and log line links back to that request.
package trace

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/google/uuid"
)

// Header and metadata keys used for propagation.
const (
	TraceIDKey = "x-trace-id"
	SpanIDKey  = "x-span-id"
)

type ctxKey struct{}

// Context identifies the current span and, inside a capture loop, its run.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	RunID        string
}

// newRoot starts a trace. IDs are 128 and 64 random bits, hex encoded.
func newRoot() Context {
	return Context{TraceID: randomHex(16), SpanID: randomHex(8)}
}

// child returns a new span in the same trace and run.
func (c Context) child() Context {
	return Context{
		TraceID:      c.TraceID,
		SpanID:       randomHex(8),
		ParentSpanID: c.SpanID,
		RunID:        c.RunID,
	}
}

func randomHex(n int) string {
	id := uuid.New()
	return hex.EncodeToString(id[:n])
}

// FromContext returns the trace in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext returns ctx carrying tc.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// WithRun tags the trace in ctx with a capture run ID, starting a trace if
// ctx has none.
func WithRun(ctx context.Context, runID string) context.Context {
	tc, ok := FromContext(ctx)
	if !ok {
		tc = newRoot()
	}
	tc.RunID = runID
	return WithContext(ctx, tc)
}

// remote reads a caller's span from a header or metadata carrier.
// ok is false when the caller sent no trace.
func remote(get func(key string) string) (Context, bool) {
	tc := Context{TraceID: get(TraceIDKey), SpanID: get(SpanIDKey)}
	return tc, tc.TraceID != ""
}

// propagate writes tc to a header or metadata carrier.
func (c Context) propagate(set func(key, value string)) {
	set(TraceIDKey, c.TraceID)
	set(SpanIDKey, c.SpanID)
}

// LogAttrs returns the identifiers as log attributes, omitting empty ones.
func (c Context) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("trace_id", c.TraceID), slog.String("span_id", c.SpanID)}
	if c.ParentSpanID != "" {
		attrs = append(attrs, slog.String("parent_span_id", c.ParentSpanID))
	}
	if c.RunID != "" {
		attrs = append(attrs, slog.String("run_id", c.RunID))
	}
	return attrs
}

// Logger returns the default logger annotated with the trace in ctx, if any.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	attrs := tc.LogAttrs()
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return slog.Default().With(args...)
}
