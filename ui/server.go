// Package ui is the operator console: a small JSON surface exercising the
// same collaborator contract the study GUI drives (digest display/override,
// next-challenge, view gating, progress status, briefings, report export).
package ui

import (
	"net/http"

	"binstudy/app"
	"binstudy/internal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wires the experiment and report services behind HTTP handlers.
type Server struct {
	router      *chi.Mux
	experiment  *app.ExperimentService
	reports     *app.ReportService
	briefingDir string
	reportFile  string
	logger      *internal.Logger
}

// Config holds console settings.
type Config struct {
	BriefingDir string
	ReportFile  string
}

// NewServer creates the console over the given services.
func NewServer(experiment *app.ExperimentService, reports *app.ReportService, cfg Config, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		router:      chi.NewRouter(),
		experiment:  experiment,
		reports:     reports,
		briefingDir: cfg.BriefingDir,
		reportFile:  cfg.ReportFile,
		logger:      logger.Named("ui"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/digest", s.handleGetDigest)
		r.Post("/digest", s.handleOverrideDigest)
		r.Post("/challenge/next", s.handleNextChallenge)
		r.Get("/views/{category}", s.handleAllowView)
		r.Get("/briefing/{study}", s.handleBriefing)
		r.Post("/report/export", s.handleExportReport)
	})
}

// Handler exposes the router for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("operator console listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}
