package trace

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes connection takeover through for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware continues the caller's trace from request headers, or starts one,
// and logs each request as a span. The trace ID is echoed in the response.
// Responses of 500 and above mark the span failed.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if caller, ok := remote(r.Header.Get); ok {
			ctx = WithContext(ctx, caller)
		}
		ctx, span := StartSpan(ctx, r.Method+" "+r.URL.Path)

		w.Header().Set(TraceIDKey, span.Trace.TraceID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttr("status", rec.status)
		if rec.status >= http.StatusInternalServerError {
			span.Fail(errors.New(http.StatusText(rec.status)))
		}
		span.End()
	})
}
