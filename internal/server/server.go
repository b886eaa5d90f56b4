// Package server exposes the meeting pipeline over HTTP: a WebSocket
// endpoint for live audio streaming and a small REST API for browsing and
// managing persisted meetings.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weihan0529/global-meeting-scribe/internal/health"
	"github.com/weihan0529/global-meeting-scribe/internal/observe"
	"github.com/weihan0529/global-meeting-scribe/internal/session"
	"github.com/weihan0529/global-meeting-scribe/internal/store"
)

// Config carries the server's construction-time settings.
type Config struct {
	// Pipeline is the per-connection session template. Each WebSocket
	// connection gets its own session built from this config.
	Pipeline session.Config

	// AllowedOrigins restricts WebSocket upgrades by Origin header pattern.
	// Empty means all origins are accepted.
	AllowedOrigins []string

	// Logger receives server diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Server handles WebSocket streaming connections and the meetings REST API.
type Server struct {
	cfg     Config
	col     session.Collaborators
	store   store.Store
	health  *health.Handler
	metrics *observe.Metrics
	log     *slog.Logger

	// mu guards the pipeline template, which a config reload may update
	// while connections are being accepted.
	mu       sync.RWMutex
	pipeline session.Config
}

// New creates a server. col provides the shared inference backends handed to
// every connection's session; st persists meetings and may not be nil
// (use [store.NewMemStore] when running without a database). h and m are
// optional.
func New(cfg Config, col session.Collaborators, st store.Store, h *health.Handler, m *observe.Metrics) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		col:      col,
		store:    st,
		health:   h,
		metrics:  m,
		log:      cfg.Logger,
		pipeline: cfg.Pipeline,
	}
}

// SetDefaultTargetLanguage changes the initial translation target handed to
// new sessions. Existing connections keep their current target.
func (s *Server) SetDefaultTargetLanguage(code string) {
	s.mu.Lock()
	s.pipeline.TargetLanguage = code
	s.mu.Unlock()
}

// pipelineConfig snapshots the session template for a new connection.
func (s *Server) pipelineConfig() session.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Handler returns the server's HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/meetings", s.handleListMeetings)
	mux.HandleFunc("GET /api/meetings/{id}", s.handleGetMeeting)
	mux.HandleFunc("DELETE /api/meetings/{id}", s.handleDeleteMeeting)
	mux.HandleFunc("POST /api/meetings/{id}/end", s.handleEndMeeting)

	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}

	handler := corsMiddleware(mux)
	if s.metrics != nil {
		handler = observe.Middleware(s.metrics)(handler)
	}
	return handler
}

// corsMiddleware allows browser clients served from another origin to reach
// the REST API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v and writes it with the given status code. An encode
// failure at this point means the client is gone; there is nothing left to
// report to.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body in the same envelope the WebSocket
// uses, so clients share one error shape.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
