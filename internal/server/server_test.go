package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/framecap/internal/capture"
	"github.com/GriffinCanCode/framecap/internal/config"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/events"
	"github.com/GriffinCanCode/framecap/internal/query"
)

// mockController mirrors the real state machine without a capture loop.
type mockController struct {
	mu       sync.Mutex
	running  bool
	frames   int
	startErr error
}

func (m *mockController) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.running {
		return apperrors.New(apperrors.CodeAlreadyRunning, capture.MsgAlreadyRunning)
	}
	m.running = true
	return nil
}

func (m *mockController) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return apperrors.New(apperrors.CodeNotRunning, capture.MsgNotRunning)
	}
	m.running = false
	return nil
}

func (m *mockController) Status() capture.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return capture.Status{IsCapturing: m.running, FramesCount: m.frames}
}

type mockFrames struct {
	recent []query.FrameRecord
	all    []query.FrameRecord
	allErr error
}

func (m *mockFrames) RecentFrames() []query.FrameRecord { return m.recent }

func (m *mockFrames) AllFrames() ([]query.FrameRecord, error) { return m.all, m.allErr }

func newTestServer(ctrl *mockController, frames *mockFrames, bus Subscriber) *Server {
	cfg := config.Default()
	return New(ctrl, frames, bus, cfg)
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal error: %v (body %q)", err, rec.Body.String())
	}
	return res
}

func TestCORSMiddleware(t *testing.T) {
	h := newTestServer(&mockController{}, &mockFrames{}, nil).Handler()

	rec := do(t, h, http.MethodOptions, "/api/capture/start")
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "http://localhost:5173" {
		t.Errorf("CORS origin = %q, want %q", v, "http://localhost:5173")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, OPTIONS" {
		t.Errorf("CORS methods = %q, want %q", v, "GET, POST, OPTIONS")
	}
	if v := rec.Header().Get("Access-Control-Allow-Headers"); v != "Content-Type" {
		t.Errorf("CORS headers = %q, want %q", v, "Content-Type")
	}

	rec = do(t, h, http.MethodGet, "/api/capture/status")
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "http://localhost:5173" {
		t.Errorf("CORS origin on GET = %q", v)
	}
}

func TestStartStopFlow(t *testing.T) {
	h := newTestServer(&mockController{}, &mockFrames{}, nil).Handler()

	tests := []struct {
		path    string
		status  string
		message string
	}{
		{"/api/capture/stop", statusError, capture.MsgNotRunning},
		{"/api/capture/start", statusSuccess, capture.MsgStarted},
		{"/api/capture/start", statusError, capture.MsgAlreadyRunning},
		{"/api/capture/stop", statusSuccess, capture.MsgStopped},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodPost, tt.path)
		if rec.Code != http.StatusOK {
			t.Errorf("POST %s status = %d, want 200", tt.path, rec.Code)
		}
		res := decodeResult(t, rec)
		if res.Status != tt.status || res.Message != tt.message {
			t.Errorf("POST %s = %+v, want {%s %s}", tt.path, res, tt.status, tt.message)
		}
	}
}

func TestStartInternalFailure(t *testing.T) {
	ctrl := &mockController{startErr: apperrors.New(apperrors.CodePersistFailed, "create output directory")}
	rec := do(t, newTestServer(ctrl, &mockFrames{}, nil).Handler(), http.MethodPost, "/api/capture/start")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if res := decodeResult(t, rec); res.Status != statusError {
		t.Errorf("Status = %q, want error", res.Status)
	}
}

func TestStartRejectsGet(t *testing.T) {
	rec := do(t, newTestServer(&mockController{}, &mockFrames{}, nil).Handler(), http.MethodGet, "/api/capture/start")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	ctrl := &mockController{running: true, frames: 7}
	rec := do(t, newTestServer(ctrl, &mockFrames{}, nil).Handler(), http.MethodGet, "/api/capture/status")

	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["is_capturing"] != true || got["frames_count"] != float64(7) {
		t.Errorf("status body = %v", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestFrames(t *testing.T) {
	frames := &mockFrames{
		recent: []query.FrameRecord{{Timestamp: "20240101_100000", Image: "aW1n", Path: "frames/frame_20240101_100000.png"}},
		all:    []query.FrameRecord{{Timestamp: "20240102_100000"}, {Timestamp: "20240101_100000"}},
	}
	h := newTestServer(&mockController{}, frames, nil).Handler()

	var recent FramesResponse
	json.Unmarshal(do(t, h, http.MethodGet, "/api/frames/recent").Body.Bytes(), &recent)
	if len(recent.Frames) != 1 || recent.Frames[0] != frames.recent[0] {
		t.Errorf("recent = %+v", recent)
	}

	var all FramesResponse
	json.Unmarshal(do(t, h, http.MethodGet, "/api/frames/all").Body.Bytes(), &all)
	if len(all.Frames) != 2 || all.Frames[0].Timestamp != "20240102_100000" {
		t.Errorf("all = %+v", all)
	}
}

func TestFramesEmptyIsArray(t *testing.T) {
	h := newTestServer(&mockController{}, &mockFrames{recent: []query.FrameRecord{}}, nil).Handler()
	body := do(t, h, http.MethodGet, "/api/frames/recent").Body.String()
	if !strings.Contains(body, `"frames":[]`) {
		t.Errorf("body = %q, want empty frames array", body)
	}
}

func TestAllFramesFailure(t *testing.T) {
	frames := &mockFrames{allErr: apperrors.New(apperrors.CodeReadFailed, "list frames directory")}
	rec := do(t, newTestServer(&mockController{}, frames, nil).Handler(), http.MethodGet, "/api/frames/all")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if res := decodeResult(t, rec); res.Status != statusError || res.Message != "list frames directory" {
		t.Errorf("result = %+v", res)
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&mockController{}, &mockFrames{}, nil).Handler(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s, want {\"status\":\"ok\"}", got)
	}
}

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:5173", "localhost:5173"},
		{"*", "*"},
		{"", ""},
	}
	for _, tt := range tests {
		s := &Server{allowedOrigin: tt.origin}
		got := strings.Join(s.originPatterns(), ",")
		if got != tt.want {
			t.Errorf("originPatterns(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	bus := events.NewBus()
	s := newTestServer(&mockController{}, &mockFrames{}, bus)
	defer s.Close()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, ts.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for s.clientCount() == 0 {
		if ctx.Err() != nil {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(events.FrameEvicted("20240101_100000", "frames/frame_20240101_100000.png"))

	var got events.Event
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("wsjson.Read() error = %v", err)
	}
	if got.Type != events.TypeFrameEvicted || got.Data["timestamp"] != "20240101_100000" {
		t.Errorf("event = %+v", got)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	bus := events.NewBus()
	s := newTestServer(&mockController{}, &mockFrames{}, bus)
	if s.subID == "" {
		t.Fatal("New() should subscribe to the bus")
	}
	s.Close()
	if bus.Unsubscribe(s.subID) {
		t.Error("Close() should remove the server's subscription")
	}
}
