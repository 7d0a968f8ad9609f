// Package api serves the query engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"codeatlas/internal/query"
)

// Server represents the HTTP API server
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	addr      string
	artifact  string
	logger    *slog.Logger
	engine    *query.Engine
	metrics   *Metrics
	startedAt time.Time
}

// NewServer creates a server answering queries from engine. artifact is the
// Blueprint path POST /reload reads.
func NewServer(addr, artifact string, engine *query.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		artifact:  artifact,
		logger:    logger,
		engine:    engine,
		metrics:   NewMetrics(engine),
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.applyMiddleware(s.router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Metrics returns the server's collectors, for wiring reload hooks.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
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
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
