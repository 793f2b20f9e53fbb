// Package server exposes the survey evidence and chat operations over HTTP.
//
// Routes:
//
//	GET  /api/evidence            theme overview
//	GET  /api/evidence?theme=<id> one theme
//	GET  /api/evidence?search=<q> ranked quotes
//	POST /api/chat                grounded chat reply
//	GET  /api/metrics             rollup metrics document
//	GET  /api/telemetry?top=<n>   query telemetry
//	GET  /healthz                 liveness and artifact status
//
// Plain HTTP connections are upgraded to HTTP/2 through h2c.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/surveydash/internal/artifact"
	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/telemetry"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// ErrServerClosed is returned by Start after Stop.
var ErrServerClosed = errors.New("server closed")

// Config holds HTTP server settings.
type Config struct {
	Address         string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps POST bodies. Zero means 64KiB.
	MaxBodyBytes int64
	// ChatRateLimit is chat requests per second across all clients.
	// Zero or negative disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// DefaultConfig returns settings for a local dashboard backend.
func DefaultConfig() Config {
	return Config{
		Address:         "127.0.0.1",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    64 << 10,
		ChatRateLimit:   2,
		ChatRateBurst:   5,
	}
}

// SnapshotSource reports the themes artifact behind the search service.
type SnapshotSource interface {
	Snapshot() *artifact.Snapshot[*themes.ThemesData]
}

// MetricsSource serves the metrics artifact verbatim.
type MetricsSource interface {
	Load() json.RawMessage
}

// ModeReporter reports how artifact changes are detected.
type ModeReporter interface {
	Mode() string
}

// Deps are the services the handlers call.
type Deps struct {
	Search  *search.Service
	Chat    *chat.Service
	Themes  SnapshotSource
	Metrics MetricsSource
	Watcher ModeReporter

	// Telemetry may be nil; /api/telemetry then reports an empty snapshot.
	Telemetry *telemetry.Collector
}

// Server is the dashboard HTTP backend.
type Server struct {
	config  Config
	deps    Deps
	logger  *slog.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	started    time.Time
	closed     atomic.Bool

	requests atomic.Uint64
	failures atomic.Uint64
}

// New creates a server. Deps.Search is required; a nil Chat service makes
// /api/chat report a configuration error.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{config: cfg, deps: deps, logger: logger, started: time.Now()}
	if cfg.ChatRateLimit > 0 {
		burst := cfg.ChatRateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ChatRateLimit), burst)
	}
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/evidence", s.handleEvidence)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.requestIDMiddleware(s.recoveryMiddleware(s.loggingMiddleware(mux)))
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	addr := net.JoinHostPort(s.config.Address, fmt.Sprint(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.started = time.Now()
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http_serve_failed", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("server_started", slog.String("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server, forcing connections closed if ctx
// expires first.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- httpServer.Shutdown(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			_ = httpServer.Close()
		}
		s.logger.Info("server_stopped")
		return err
	case <-ctx.Done():
		_ = httpServer.Close()
		return ctx.Err()
	}
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Addr returns the listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
