package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/eslsoft/gapmap/internal/infrastructure/config"
)

// Server represents the application server
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewServer wraps the router with CORS and cleartext HTTP/2 support.
func NewServer(cfg *config.Config, logger *logrus.Logger, handler http.Handler) *Server {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(handler)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: h2c.NewHandler(corsHandler, &http2.Server{}),
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		logger:     logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Infof("HTTP server starting on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("Failed to shutdown HTTP server: %v", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
