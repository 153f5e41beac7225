// Package http serves studydocs over HTTP: the streamable MCP endpoint, a
// health check and Prometheus metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/studydocs/internal/logging"
	"github.com/fyrsmithlabs/studydocs/internal/telemetry"
)

// Corpus is the view of the document root reported by /health.
type Corpus interface {
	Root() string
	RootExists() bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RateLimit is requests per second per client IP on /mcp. Zero disables
	// limiting.
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns localhost:9191 with limiting disabled.
func DefaultConfig() *Config {
	return &Config{
		Host: "localhost",
		Port: 9191,
	}
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	docs   Corpus
	mcp    http.Handler
	tel    *telemetry.Telemetry
	logger *logging.Logger
	config *Config
}

// NewServer creates an HTTP server. mcpHandler is mounted at /mcp.
func NewServer(cfg *Config, docs Corpus, mcpHandler http.Handler, logger *logging.Logger, tel *telemetry.Telemetry) (*Server, error) {
	if docs == nil {
		return nil, errors.New("corpus is required")
	}
	if mcpHandler == nil {
		return nil, errors.New("mcp handler is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		docs:   docs,
		mcp:    mcpHandler,
		tel:    tel,
		logger: logger.Named("http"),
		config: cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(NewHTTPMetrics(tel.Meter(httpInstrumentationName), s.logger).MetricsMiddleware())
	e.Use(s.requestLogger())

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	mcp := echo.WrapHandler(s.mcp)
	if s.config.RateLimit > 0 {
		s.echo.Any("/mcp", mcp, s.rateLimiter())
	} else {
		s.echo.Any("/mcp", mcp)
	}
}

// rateLimiter limits /mcp per client IP. Excess requests get 429.
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	burst := s.config.RateBurst
	if burst <= 0 {
		burst = int(s.config.RateLimit) + 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.config.RateLimit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.Warn(c.Request().Context(), "rate limit exceeded", zap.String("client", identifier))
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// requestLogger logs every request with its request id in the context.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := req.Context()
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidID(rid) {
				ctx = logging.WithRequestID(ctx, rid)
				c.SetRequest(req.WithContext(ctx))
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string                  `json:"status"`
	Root       string                  `json:"root"`
	RootExists bool                    `json:"root_exists"`
	Telemetry  *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// handleHealth reports "ok", or "degraded" when the root is missing.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:     "ok",
		Root:       s.docs.Root(),
		RootExists: s.docs.RootExists(),
	}
	if !resp.RootExists {
		resp.Status = "degraded"
	}
	if s.tel != nil {
		h := s.tel.Health()
		resp.Telemetry = &h
	}
	return c.JSON(http.StatusOK, resp)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Serve serves on ln until ctx is cancelled, then shuts down within
// shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	s.echo.Listener = ln
	s.logger.Info(ctx, "starting http server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
