// Package server exposes the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/healthlens-ai/backend/internal/auth"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/config"
	apperrors "github.com/healthlens-ai/backend/internal/errors"
	"github.com/healthlens-ai/backend/internal/interfaces"
	"github.com/healthlens-ai/backend/internal/logger"
)

// Deps collects everything the HTTP layer depends on. DB and Cache are only
// probed by the health endpoint and may be nil in tests.
type Deps struct {
	Analyses interfaces.AnalysisServiceInterface
	Chat     interfaces.ChatServiceInterface
	Users    interfaces.UserServiceInterface
	Verifier auth.TokenVerifier
	DB       *gorm.DB
	Cache    cache.Store
}

// Server represents the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	deps       Deps
	errs       *apperrors.Handler
}

// New constructs the server with its routes wired.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		deps: deps,
		errs: apperrors.NewHandler(logger.GetLogger()),
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Routes(cfg.AllowedOrigins),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Routes builds the router. Everything under /api requires a bearer token;
// the health probe does not.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.requireAuth)

		api.Post("/analyze/report", s.handleAnalyzeReport)
		api.Post("/analyze/face", s.handleAnalyzeFace)
		api.Post("/analyze/risk", s.handleAnalyzeRisk)

		api.Post("/analyses", s.handleCreateAnalysis)
		api.Get("/analyses", s.handleListAnalyses)
		api.Get("/analyses/stats", s.handleAnalysisStats)
		api.Get("/analyses/{id}", s.handleGetAnalysis)

		api.Post("/chatbot", s.handleChatbot)

		api.Get("/profile", s.handleGetProfile)
		api.Put("/profile", s.handleUpdateProfile)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	payload := map[string]any{"status": "ok"}

	if s.deps.DB != nil {
		sqlDB, err := s.deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["database"] = err.Error()
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["cache"] = err.Error()
		}
	}

	respondJSON(w, status, payload)
}

// handleError logs the error through the typed handler and writes the
// status its type maps to. Unknown errors become a generic 500.
func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	s.errs.Handle(ctx, err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErr.HTTPStatus(), appErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// Start begins listening for HTTP traffic.
func (s *Server) Start() error {
	logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates all active connections.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
