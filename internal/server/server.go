// Package server exposes the daemon's local HTTP surface: health and status
// probes, Prometheus metrics, and a live websocket stream of run events. It
// binds to loopback by default; there is no auth because the daemon is a
// single-user tool.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jsridhar/keepr/internal/cron"
	"github.com/jsridhar/keepr/internal/events"
	"github.com/jsridhar/keepr/internal/history"
	"github.com/jsridhar/keepr/internal/metrics"
)

// Config holds the HTTP server settings.
type Config struct {
	Bind            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8787"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// The websocket stream needs an unbounded write window; per-write
		// deadlines are handled by the websocket library instead.
		c.WriteTimeout = 0
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server is the daemon's HTTP endpoint set.
type Server struct {
	config    Config
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	scheduler *cron.Scheduler
	store     *history.Store
	bus       *events.Bus
	metrics   *metrics.Metrics
}

// New builds a server. store, bus, and metrics may be nil; the corresponding
// endpoints degrade rather than fail.
func New(cfg Config, scheduler *cron.Scheduler, store *history.Store, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    cfg.withDefaults(),
		logger:    logger,
		scheduler: scheduler,
		store:     store,
		bus:       bus,
		metrics:   m,
	}
}

// Router constructs the chi mux with all routes wired.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth())
	r.Get("/status", s.handleStatus())
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	if s.bus != nil {
		r.Get("/ws/events", s.handleEvents)
	}

	return r
}

// Start begins serving. It returns once the listener is bound so callers can
// treat a bad bind address as a startup error.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.config.Bind)
	if err != nil {
		return errors.New("server: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("server listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
