// Package server exposes the façade's inbound HTTP surface: the chat API,
// the static landing page, health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skoeber/agentgate/internal/metrics"
)

// Config holds server configuration
type Config struct {
	Host string
	Port int

	// StaticDir holds the landing page assets
	StaticDir string

	// RateLimitPerMinute is the per-client request budget. Zero disables
	// rate limiting.
	RateLimitPerMinute int

	Chat    ChatFunc
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Server is the façade HTTP server
type Server struct {
	host      string
	port      int
	staticDir string

	chat    ChatFunc
	limiter *RateLimiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	server         *http.Server
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new façade server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat func is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics()
	}

	var limiter *RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = NewRateLimiter(cfg.RateLimitPerMinute)
	}

	return &Server{
		host:      cfg.Host,
		port:      cfg.Port,
		staticDir: cfg.StaticDir,
		chat:      cfg.Chat,
		limiter:   limiter,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// Handler builds the HTTP routing for the server. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.host).
		Int("port", s.port).
		Msg("Starting agentgate server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down agentgate server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.limiter != nil {
		s.limiter.Stop()
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}
