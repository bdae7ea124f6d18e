package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/httpmiddleware"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// Server wraps a gin engine in an http.Server with the configured middleware chain.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a Server whose engine already carries recovery, request logging,
// per-IP rate limiting and circuit breaking as enabled in cfg. Routes are registered on Engine().
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	srv := &Server{
		httpServer: &http.Server{
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: gin.New(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.log == nil {
		srv.log = logger.New(cfg.App.Name, "", "")
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}

	srv.engine.Use(gin.Recovery(), httpmiddleware.RequestLogger(srv.log))

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := NewKeyedLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.log.Info("Enabling Rate Limiter middleware with algorithm: " + cfg.Middleware.RateLimiter.Algorithm)
		srv.engine.Use(httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIPKey))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := NewBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.log.Info("Enabling Circuit Breaker middleware.")
		srv.engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	srv.httpServer.Handler = srv.engine
	return srv, nil
}

// Engine returns the gin engine to register routes on.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("Starting server on " + s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewKeyedLimiter builds a per-key rate limiter from the configuration.
func NewKeyedLimiter(cfg config.RateLimiterConfig) (*ratelimiter.Keyed, error) {
	factory, err := ratelimiter.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	return ratelimiter.NewKeyed(factory, cfg.MaxKeys)
}

// NewBreaker builds a circuit breaker from the configuration.
func NewBreaker(cfg config.CircuitBreakerConfig) (*circuitbreaker.Breaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout), nil
}
