// Package http serves pipeline runs over HTTP. Every request gets its own
// project record and run deadline.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/orchestrator"
	"github.com/fyrsmithlabs/autodev/internal/telemetry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxRequestBody bounds POST bodies; a project request is a sentence or two.
const maxRequestBody = "64K"

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, request string, opts ...orchestrator.Option) (*orchestrator.Result, error)
}

// Server provides HTTP endpoints for autodev.
type Server struct {
	echo       *echo.Echo
	runner     Runner
	logger     *logging.Logger
	config     *Config
	telemetry  *telemetry.Telemetry
	activeRuns atomic.Int64
}

// Config holds HTTP server configuration.
type Config struct {
	Host       string
	Port       int
	RunTimeout time.Duration
	Version    string
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry reports telemetry health on /health.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *Server) { s.telemetry = t }
}

// NewServer creates a new HTTP server.
func NewServer(runner Runner, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:       "localhost",
			Port:       9090,
			RunTimeout: 15 * time.Minute,
		}
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		runner: runner,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxRequestBody))
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/runs", s.handleRun)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:     "ok",
		Version:    s.config.Version,
		ActiveRuns: s.activeRuns.Load(),
	}
	if s.telemetry != nil {
		h := s.telemetry.Health()
		resp.Telemetry = &h
	}
	return c.JSON(http.StatusOK, resp)
}

// handleRun runs one pipeline to completion within the configured deadline.
func (s *Server) handleRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Request) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request field is required")
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	ctx := logging.WithRequestID(c.Request().Context(), requestID)
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	s.activeRuns.Add(1)
	defer s.activeRuns.Add(-1)

	result, err := s.runner.Run(ctx, req.Request)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn(ctx, "run timed out", zap.Duration("timeout", s.config.RunTimeout))
		return echo.NewHTTPError(http.StatusGatewayTimeout, "run exceeded its deadline")
	}

	if result == nil {
		if err == nil {
			err = errors.New("run produced no result")
		}
		s.logger.Error(ctx, "run could not start", zap.Error(err))
		if errors.Is(err, contract.ErrFatalCall) {
			return echo.NewHTTPError(http.StatusBadGateway, "generation backend unavailable")
		}
		if errors.Is(err, orchestrator.ErrEmptyRequest) {
			return echo.NewHTTPError(http.StatusBadRequest, "request field is required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "run failed to start")
	}

	resp := RunResponse{
		RunID:   result.RunID,
		Status:  RunStatusCompleted,
		Goal:    result.Goal,
		Record:  result.Record,
		Reports: result.Reports,
	}
	if err != nil {
		resp.Status = RunStatusFailed
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
