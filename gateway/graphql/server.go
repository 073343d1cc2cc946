package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/health"
)

// Server manages the HTTP listener for the GraphQL endpoint, the playground,
// health and metrics.
type Server struct {
	config  Config
	graphql http.Handler
	health  func() health.Status
	metrics http.Handler
	limiter *rateLimiter
	logger  *slog.Logger

	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler
	addr       string

	// Lifecycle
	running  bool
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once // Ensures stopChan is closed exactly once
}

// ServerOption configures optional Server routes.
type ServerOption func(*Server)

// WithHealth serves fn's result at /health.
func WithHealth(fn func() health.Status) ServerOption {
	return func(s *Server) { s.health = fn }
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithRateLimit throttles every route; onDeny is called for each rejection.
func WithRateLimit(cfg RateLimitConfig, onDeny func()) ServerOption {
	return func(s *Server) {
		if cfg.Enabled() {
			s.limiter = newRateLimiter(cfg, onDeny)
		}
	}
}

// NewServer creates a new GraphQL HTTP server around the gqlgen handler.
func NewServer(config Config, gql http.Handler, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Server", "NewServer", "config validation")
	}

	if gql == nil {
		return nil, errors.WrapFatal(fmt.Errorf("graphql handler is nil"), "Server", "NewServer",
			"graphql handler is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		graphql:  gql,
		logger:   logger,
		mux:      http.NewServeMux(),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setup()
	return s, nil
}

// setup configures routes and the HTTP server
func (s *Server) setup() {
	s.mux.Handle(s.config.Path, s.graphql)
	s.mux.HandleFunc("/health", s.handleHealth)

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}

	if s.config.EnablePlayground {
		s.mux.Handle("/", playground.Handler("eventgraph", s.config.Path))
		s.logger.Info("GraphQL Playground enabled",
			"url", fmt.Sprintf("http://%s/", s.config.BindAddress))
	}

	var handler http.Handler = s.mux
	if s.config.EnableCORS {
		handler = corsMiddleware(s.config.CORSOrigins, handler)
	}
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	s.handler = handler

	// WriteTimeout is not set: subscriptions hold the connection open and
	// the websocket upgrade clears deadlines anyway.
	s.httpServer = &http.Server{
		Addr:              s.config.BindAddress,
		Handler:           handler,
		ReadHeaderTimeout: s.config.Timeout(),
		ReadTimeout:       s.config.Timeout(),
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("Server configured",
		"address", s.config.BindAddress,
		"path", s.config.Path,
		"timeout", s.config.Timeout())
}

// Handler returns the complete middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens and serves until ctx is cancelled or Stop is called.
// The ready channel is closed once the listener is bound.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Server", "Start", "server already running")
	}

	listener, err := net.Listen("tcp", s.config.BindAddress)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Start", "listen on "+s.config.BindAddress)
	}
	s.running = true
	s.addr = listener.Addr().String()
	server := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Info("Server starting", "address", listener.Addr().String())

		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			errChan <- err
		}
	}()

	if ready != nil {
		close(ready)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("Server context cancelled, shutting down")
		return s.Stop(s.config.ShutdownTimeout)

	case <-s.stopChan:
		s.logger.Info("Server stop requested")
		return nil

	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if err == nil {
			return nil
		}
		return errors.WrapFatal(err, "Server", "Start", "HTTP server failed")
	}
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	server := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Server stopping")

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server gracefully", "error", err)
		return errors.WrapTransient(err, "Server", "Stop", "graceful shutdown failed")
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Server stopped")
	return nil
}

// Address returns the bound listener address once started.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// handleHealth reports the health status as JSON. Only an unhealthy status
// fails the check; a degraded gateway still serves requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	status := health.Unhealthy("server", "not running")
	if s.health != nil {
		status = s.health()
	} else if running {
		status = health.Healthy("server", "running")
	}

	w.Header().Set("Content-Type", "application/json")
	if !running || status.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
