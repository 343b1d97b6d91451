package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hvault/hvault/internal/ingest"
	"github.com/hvault/hvault/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     *storage.DB
	svc    *ingest.Service
	log    *slog.Logger
	apiKey string
	target string
	router chi.Router
}

// New creates a new Server with all routes configured. An empty apiKey
// disables authentication on the ingest endpoint. target tags rows from
// requests that carry no target of their own.
func New(db *storage.DB, svc *ingest.Service, apiKey, target string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		svc:    svc,
		log:    log,
		apiKey: apiKey,
		target: target,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/health", s.handleHealth)

	// Ingest endpoint (API key required when configured)
	s.router.Route("/api/ingest", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Post("/", s.handleIngest)
	})

	// Read endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/metrics/latest", s.handleLatestMetrics)
	s.router.Get("/api/v1/metrics", s.handleQueryMetrics)
	s.router.Get("/api/v1/sleep", s.handleQuerySleep)
	s.router.Get("/api/v1/workouts", s.handleQueryWorkouts)
	s.router.Get("/api/v1/sync-log", s.handleSyncLog)
}
