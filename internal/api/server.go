package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/config"
	"github.com/dgallion1/tini/internal/parser"
	"github.com/dgallion1/tini/internal/pipeline"
	"github.com/dgallion1/tini/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for tini.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	backend      *backend.Client
	tags         *store.Tags
	seg          *parser.Segmenter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. client may be nil, in
// which case backend-backed endpoints answer 503.
func NewServer(orch *pipeline.Orchestrator, client *backend.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		backend:      client,
		seg:          parser.NewSegmenter(log),
		log:          log,
		cfg:          cfg,
	}
	if client != nil {
		s.tags = store.NewTags(client, cfg.TagsCacheTTL, log)
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/chapters", s.handleChapters)
			r.Post("/highlights/apply", s.handleApplyHighlights)
			r.Post("/highlights/strip", s.handleStripHighlights)
			r.Get("/highlights/colors", s.handleColors)
			r.Post("/selection", s.handleSelection)

			r.Post("/ingest", s.handleIngest)
			r.Get("/ingest/{jobID}/status", s.handleIngestStatus)
			r.Get("/ingest/{jobID}/chapters", s.handleIngestChapters)

			r.Get("/documents/{docID}/highlights/statistics", s.handleHighlightStatistics)
			r.Get("/tags/tree", s.handleTagTree)
			r.Get("/stats/backend", s.handleBackendStats)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"backend":     s.backend != nil,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
