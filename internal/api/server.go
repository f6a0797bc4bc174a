// Package api serves the diff, example execution and validation operations
// over HTTP. Requests and responses are JSON.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"doccov/internal/config"
	"doccov/internal/engine"
	"doccov/internal/slogutil"
)

// Server represents the HTTP API server
type Server struct {
	router *http.ServeMux
	server *http.Server
	addr   string
	logger *slog.Logger
	engine *engine.Engine
	cfg    config.ServerConfig
}

// NewServer creates a new HTTP server instance
func NewServer(eng *engine.Engine, cfg config.ServerConfig, logger *slog.Logger) *Server {
	def := config.DefaultConfig().Server
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	s := &Server{
		addr:   cfg.Addr,
		logger: slogutil.OrDiscard(logger),
		engine: eng,
		cfg:    cfg,
		router: http.NewServeMux(),
	}

	s.registerRoutes()

	timeout := time.Duration(cfg.RequestTimeout) * time.Millisecond
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.applyMiddleware(s.router),
		ReadHeaderTimeout: 15 * time.Second,
		// Example runs may take the whole request budget.
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler; the last one applied runs first.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = TimeoutMiddleware(time.Duration(s.cfg.RequestTimeout) * time.Millisecond)(handler)
	handler = BodyLimitMiddleware(s.cfg.MaxBodyBytes)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
