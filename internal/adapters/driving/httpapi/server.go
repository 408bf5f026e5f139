// Package httpapi serves the search API over HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("httpapi: search service is required")

const shutdownTimeout = 5 * time.Second

// Ports aggregates the driving ports the HTTP API calls.
type Ports struct {
	// Search runs queries.
	Search driving.SearchService

	// Source lists searchable sources. Optional.
	Source driving.SourceService
}

// Options configures the server.
type Options struct {
	// AllowedOrigins enables CORS for these origins. Empty disables CORS.
	AllowedOrigins []string

	// Version is reported by the info route.
	Version string

	// Metrics records request counts and serves /metrics. Optional.
	Metrics *metrics.Metrics
}

// Server is the HTTP API.
type Server struct {
	echo    *echo.Echo
	ports   Ports
	version string
	metrics *metrics.Metrics
}

// NewServer builds the router and registers every route.
func NewServer(ports Ports, opts Options) (*Server, error) {
	if ports.Search == nil {
		return nil, ErrMissingSearchService
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		ports:   ports,
		version: opts.Version,
		metrics: opts.Metrics,
	}
	if s.version == "" {
		s.version = "dev"
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if len(opts.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType},
		}))
	}
	e.Use(s.observe)

	e.GET("/", s.handleInfo)
	e.GET("/healthz", s.handleHealth)
	e.GET("/api/search", s.handleSearch)
	e.GET("/api/sources", s.handleSources)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// handleError writes every error as {"error": msg}.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		logger.Error("http: %d %s %s: %v", code, req.Method, req.URL.Path, err)
	} else {
		logger.Debug("http: %d %s %s: %v", code, req.Method, req.URL.Path, err)
	}

	if !c.Response().Committed {
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// observe records request count and latency per route.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequest(c.Request().Method, route, status, time.Since(start))
		return err
	}
}
