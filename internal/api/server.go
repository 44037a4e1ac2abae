// Package api exposes mindmap generation over HTTP: uploads become queued
// jobs whose status and rendered outputs are polled by ID.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chriscarrollsmith/mindmap-generator/internal/config"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/pipeline"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	oracle       *oracle.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. client may be nil, in
// which case the stats endpoints report unavailable.
func NewServer(orch *pipeline.Orchestrator, client *oracle.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		oracle:       client,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))

		r.Post("/api/mindmaps", s.handleCreate)
		r.Get("/api/mindmaps/{jobID}", s.handleStatus)
		r.Get("/api/mindmaps/{jobID}/{format}", s.handleOutput)

		r.Get("/api/stats/llm", s.handleLLMStats)
		r.Get("/api/stats/usage", s.handleUsage)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
