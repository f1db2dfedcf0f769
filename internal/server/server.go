package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/framecap/internal/capture"
	"github.com/GriffinCanCode/framecap/internal/config"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/events"
	"github.com/GriffinCanCode/framecap/internal/query"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// Controller starts and stops capture.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() capture.Status
}

// Frames answers frame queries.
type Frames interface {
	RecentFrames() []query.FrameRecord
	AllFrames() ([]query.FrameRecord, error)
}

// Subscriber is the receiving side of the event bus.
type Subscriber interface {
	SubscribeAll(handler events.Handler) string
	Unsubscribe(id string) bool
}

// Result is the envelope for control actions and failures.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FramesResponse wraps frame listings.
type FramesResponse struct {
	Frames []query.FrameRecord `json:"frames"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl          Controller
	frames        Frames
	bus           Subscriber
	subID         string
	allowedOrigin string

	mu    sync.RWMutex
	conns map[*websocket.Conn]chan events.Event
}

// New creates a server and subscribes it to bus for websocket broadcast.
// bus may be nil, in which case /ws clients receive nothing.
func New(ctrl Controller, frames Frames, bus Subscriber, cfg *config.Config) *Server {
	s := &Server{
		ctrl:          ctrl,
		frames:        frames,
		bus:           bus,
		allowedOrigin: cfg.AllowedOrigin,
		conns:         make(map[*websocket.Conn]chan events.Event),
	}
	if bus != nil {
		s.subID = bus.SubscribeAll(s.broadcast)
	}
	return s
}

// Close detaches the server from the event bus.
func (s *Server) Close() {
	if s.bus != nil {
		s.bus.Unsubscribe(s.subID)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/capture/start", s.handleStart)
	mux.HandleFunc("POST /api/capture/stop", s.handleStop)
	mux.HandleFunc("GET /api/capture/status", s.handleStatus)
	mux.HandleFunc("GET /api/frames/recent", s.handleRecent)
	mux.HandleFunc("GET /api/frames/all", s.handleAll)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Apply middleware: trace -> CORS
	return s.corsMiddleware(trace.Middleware(mux))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", corsMethods)
		w.Header().Set("Access-Control-Allow-Headers", corsHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Conflicts answer 200 with status "error".
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		ae = apperrors.Wrap(err, apperrors.CodeInternal, err.Error())
	}
	code := ae.HTTPStatus()
	if code >= http.StatusInternalServerError {
		trace.Logger(ctx).Error("request failed", "error", err)
	}
	writeJSON(w, code, Result{Status: statusError, Message: ae.Message})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(r.Context()); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Status: statusSuccess, Message: capture.MsgStarted})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(r.Context()); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Status: statusSuccess, Message: capture.MsgStopped})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleRecent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FramesResponse{Frames: s.frames.RecentFrames()})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	frames, err := s.frames.AllFrames()
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, FramesResponse{Frames: frames})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusOK})
}

// originPatterns converts the CORS origin into websocket host patterns.
func (s *Server) originPatterns() []string {
	if s.allowedOrigin == "*" {
		return []string{"*"}
	}
	u, err := url.Parse(s.allowedOrigin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	queue := make(chan events.Event, WSSendBuffer)
	s.mu.Lock()
	s.conns[conn] = queue
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	log := trace.Logger(r.Context())
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Clients only listen; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			log.Debug("websocket closed", "remote", r.RemoteAddr)
			return
		case ev := <-queue:
			wctx, cancel := context.WithTimeout(ctx, WSWriteTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				log.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

// broadcast queues e for every connected client without blocking the publisher.
func (s *Server) broadcast(e events.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, queue := range s.conns {
		select {
		case queue <- e:
		default:
			slog.Debug("websocket client queue full, dropping event", "type", e.Type)
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
