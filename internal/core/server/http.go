package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/solatis/geokeeper/internal/core/api"
	"github.com/solatis/geokeeper/internal/core/config"
)

// HTTPServer manages the JSON/HTTP listener.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	config   *config.ServiceConfig
	log      zerolog.Logger
}

// NewHTTPServer wraps the service routes with panic recovery and request logging.
func NewHTTPServer(cfg *config.ServiceConfig, service api.TransformServer, log zerolog.Logger) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	handler := api.NewHTTPHandler(service,
		middleware.Recoverer,
		RequestLogger(log, cfg.RequestTimeout),
	)

	return &HTTPServer{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort),
			Handler:           handler,
			ReadHeaderTimeout: cfg.RequestTimeout,
		},
		config: cfg,
		log:    log,
	}, nil
}

// Listen binds the configured address. Start calls it when no listener is bound yet.
func (s *HTTPServer) Listen() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *HTTPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves HTTP requests until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Info().Str("addr", s.listener.Addr().String()).Msg("http server listening")
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the 30-second timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
		return fmt.Errorf("graceful shutdown timeout, forced stop: %w", err)
	}
	return nil
}
