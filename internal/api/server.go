package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/config"
	"github.com/dgallion1/chartmate/internal/pipeline"
	"github.com/dgallion1/chartmate/internal/status"
)

// Server is the HTTP API server for chartmate.
type Server struct {
	router   chi.Router
	intake   *pipeline.Intake
	blobs    blob.Store
	statuses status.Store
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(intake *pipeline.Intake, blobs blob.Store, statuses status.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		intake:   intake,
		blobs:    blobs,
		statuses: statuses,
		log:      log,
		cfg:      cfg,
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

		r.Post("/api/jobs", s.handleSubmit)
		r.Get("/api/jobs/{jobID}", s.handleResult)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
