package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fractionalops/claire-backend/internal/config"
)

// Server is the HTTP API server.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates an API server around the given handlers. The listen
// address comes from cfg.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	handler := SetupRoutes(h)
	return &Server{
		config:  cfg,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: handler,
			// Generous write timeout: copy generation holds the request open
			// while the content gateway runs.
			ReadTimeout:       time.Minute,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
