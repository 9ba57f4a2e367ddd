// Package server exposes manifest rendering and secret encryption over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cameronsjo/manman/internal/manifest"
	"github.com/cameronsjo/manman/internal/ui"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Environments []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DrainDelay is how long /ready reports 503 before the listener
	// closes, so load balancers stop routing first.
	DrainDelay time.Duration

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:            8000,
		Environments:    []string{"dev", "stage", "prod"},
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

// Server handles HTTP requests.
type Server struct {
	cfg       Config
	assembler *manifest.Assembler
	server    *http.Server
	ready     atomic.Bool
}

// New creates a Server that renders with assembler.
func New(cfg Config, assembler *manifest.Assembler) *Server {
	s := &Server{cfg: cfg, assembler: assembler}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	s.ready.Store(true)
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/liveness", s.handleLiveness)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/manifests/generate", s.handleManifests)
	r.Post("/dockerfiles/generate", s.handleDockerfile)
	r.Post("/secrets/encrypt", s.handleEncrypt)

	return r
}

// Run serves until ctx is cancelled or SIGTERM/SIGINT arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		ui.Info("HTTP server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
		ui.Warning("Shutting down...")
	}

	return s.shutdown()
}

// shutdown marks the server not ready, waits for the drain delay, then
// stops accepting requests and waits for in-flight ones.
func (s *Server) shutdown() error {
	s.ready.Store(false)
	if s.cfg.DrainDelay > 0 {
		time.Sleep(s.cfg.DrainDelay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	ui.Success("Shutdown complete")
	return nil
}

// IsReady reports whether the server accepts new work.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.IsReady() {
		http.Error(w, "Not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
