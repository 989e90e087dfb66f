package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mdchunk/internal/chunker"
	"github.com/dgallion1/mdchunk/internal/config"
	"github.com/dgallion1/mdchunk/internal/corrector"
)

// Server is the HTTP API in front of the chunking engine.
type Server struct {
	router chi.Router
	engine *chunker.Engine
	stats  *corrector.Stats
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil when
// heading correction is not wired.
func NewServer(engine *chunker.Engine, stats *corrector.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		engine: engine,
		stats:  stats,
		log:    log,
		cfg:    cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/chunk", s.handleChunk)
		r.Post("/api/chunk/file", s.handleChunkFile)
		r.Post("/api/chunk/batch", s.handleChunkBatch)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
