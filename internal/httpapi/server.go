// Package httpapi provides the internal HTTP surface for the search
// engine. Authentication happens upstream; requests arrive with an
// X-Tenant-ID header set by the authenticating proxy.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/embeddings"
	"github.com/fyrsmithlabs/mediad/internal/governor"
	"github.com/fyrsmithlabs/mediad/internal/search"
	"github.com/fyrsmithlabs/mediad/internal/store"
	"github.com/fyrsmithlabs/mediad/internal/tenant"
	"github.com/fyrsmithlabs/mediad/internal/vectorindex"
)

// TenantHeader carries the authenticated tenant identity.
const TenantHeader = "X-Tenant-ID"

// Engine is the part of the orchestrator the HTTP layer needs.
type Engine interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
	InvalidateCache(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the engine over HTTP.
type Server struct {
	echo   *echo.Echo
	engine Engine
	logger *zap.Logger
	config Config
}

// NewServer creates the HTTP server.
func NewServer(engine Engine, logger *zap.Logger, cfg Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, engine: engine, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1", s.tenantMiddleware)
	v1.POST("/search", s.handleSearch)
	v1.POST("/cache/invalidate", s.handleInvalidate)
}

// tenantMiddleware lifts the proxy-authenticated tenant header into the
// request context. Requests without a valid tenant never reach the
// engine.
func (s *Server) tenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(TenantHeader)
		if !tenant.ValidID(id) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid tenant identity")
		}
		ctx := tenant.ContextWithTenant(c.Request().Context(), &tenant.Info{TenantID: id})
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query         string  `json:"query"`
	Mode          string  `json:"mode"`
	Limit         int     `json:"limit"`
	MinSimilarity float64 `json:"min_similarity"`

	Kind          string `json:"kind"`
	Album         string `json:"album"`
	CreatedAfter  string `json:"created_after"`
	CreatedBefore string `json:"created_before"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	mode, err := search.ParseMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	q := search.Query{
		Text:          req.Query,
		Mode:          mode,
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
		Filters: search.Filters{
			Kind:  req.Kind,
			Album: req.Album,
		},
	}
	if q.Filters.CreatedAfter, err = parseTime(req.CreatedAfter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid created_after timestamp")
	}
	if q.Filters.CreatedBefore, err = parseTime(req.CreatedBefore); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid created_before timestamp")
	}

	resp, err := s.engine.Search(c.Request().Context(), q)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInvalidate(c echo.Context) error {
	if err := s.engine.InvalidateCache(c.Request().Context()); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates engine errors into HTTP status codes. Isolation
// violations surface as opaque 500s; the details stay in the logs.
func (s *Server) mapError(c echo.Context, err error) error {
	var quotaErr *governor.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		seconds := int(quotaErr.RetryAfter.Seconds() + 0.999)
		if seconds < 1 {
			seconds = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
		return echo.NewHTTPError(http.StatusTooManyRequests, "quota exceeded")

	case errors.Is(err, search.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, tenant.ErrMissingTenant), errors.Is(err, tenant.ErrInvalidTenant):
		return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid tenant identity")

	case embeddings.IsTransient(err):
		return echo.NewHTTPError(http.StatusBadGateway, "embedding provider unavailable")

	case errors.Is(err, store.ErrUnavailable), errors.Is(err, vectorindex.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage backend unavailable")

	default:
		s.logger.Error("search request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Echo exposes the underlying router for extra route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
