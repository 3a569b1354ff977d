// Package server wires the chi router, the middleware chain and the routes
// of the demo service, and owns its lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/routemetrics/config"
	"github.com/giygas/routemetrics/handlers"
	"github.com/giygas/routemetrics/interfaces"
	"github.com/giygas/routemetrics/logging"
	"github.com/giygas/routemetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	config  *config.Config
	shared  *metrics.Shared
	health  interfaces.HealthChecker
	limiter *RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, shared *metrics.Shared, health interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		config:  cfg,
		shared:  shared,
		health:  health,
		limiter: NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity, cfg.MetricsPath),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware. Metrics sits outside
// Recoverer so a panicking handler is recorded as the 500 Recoverer writes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(metrics.NewMiddleware(s.shared).Handler)
	s.router.Use(logging.Middleware(logging.Logger(), s.config.MetricsPath, "/health"))
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Handler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/hello", handlers.Hello)
	s.router.Get("/users/{id}", handlers.GetUser)
	s.router.Post("/submit", handlers.Submit)
	s.router.Get("/health", handlers.HealthCheck(s.health))
	s.router.Method(http.MethodGet, s.config.MetricsPath, metrics.Handler(s.shared))
}

// Router exposes the router so callers can mount more routes
func (s *Server) Router() chi.Router {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.limiter.StartCleanup(30 * time.Minute)
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port),
		"metrics_path", s.config.MetricsPath)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
