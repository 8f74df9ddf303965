// Package ops serves the operational HTTP endpoints: liveness, readiness
// and the status of every probe job and sink publisher.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/probewatch/probewatch/internal/sink"
	"github.com/probewatch/probewatch/internal/worker"
)

// RouterConfig holds configuration for the ops router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	// Jobs and Sinks are optional.
	Jobs  *worker.StatusBoard
	Sinks *sink.Registry

	// RateLimit defaults to DefaultRateLimit.
	RateLimit *RateLimitConfig
}

// NewRouter creates the chi router with every ops route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	limit := DefaultRateLimit
	if cfg.RateLimit != nil {
		limit = *cfg.RateLimit
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(RateLimitByIP(limit))

	h := NewHandler(cfg.Version, cfg.BuildTime, cfg.Jobs, cfg.Sinks)

	r.Route("/v1/ops", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)
		r.Get("/ready", h.ReadinessCheck)
		r.Get("/status", h.SystemStatus)
		r.Get("/jobs/{name}", h.JobStatus)
		r.Get("/sinks/{name}", h.SinkStatus)
	})

	return r
}

// Server runs the ops router until its context is cancelled.
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a Server listening on port.
func NewServer(port int, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("ops server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but uses an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("ops server listening")
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	s.logger.Info().Msg("ops server stopped")
	return nil
}
