// Package server exposes the access-controlled HTTP facade for faqd.
//
// Every tenant-scoped route sits behind the credential gate: an invalid key
// terminates the request before any embedding or store work. The search
// surface keeps the legacy contract of returning logical errors in a 200
// body; mutation routes use conventional status codes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sembase/faqd/internal/auth"
	"github.com/sembase/faqd/internal/retrieval"
	"github.com/sembase/faqd/internal/store"
)

// FAQStore is the slice of the document store the facade needs.
type FAQStore interface {
	Add(ctx context.Context, owner, question, answer string) (*store.Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, owner string) ([]store.Document, error)
	Ping(ctx context.Context) error
}

// Queryer answers semantic FAQ queries.
type Queryer interface {
	Query(ctx context.Context, owner, text string, maxResults int) ([]retrieval.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// APIKeySecret feeds the credential gate.
	APIKeySecret string

	// DefaultMaxResults applies when a search omits max_results.
	DefaultMaxResults int
}

// Server provides the faqd HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	faqs    FAQStore
	queries Queryer
	logger  *zap.Logger
	config  *Config
}

// New creates the HTTP server.
func New(faqs FAQStore, queries Queryer, logger *zap.Logger, cfg *Config) (*Server, error) {
	if faqs == nil {
		return nil, fmt.Errorf("faq store cannot be nil")
	}
	if queries == nil {
		return nil, fmt.Errorf("queryer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil || cfg.APIKeySecret == "" {
		return nil, fmt.Errorf("config with api key secret is required")
	}
	if cfg.DefaultMaxResults == 0 {
		cfg.DefaultMaxResults = 10
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

	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.Middleware())

	s := &Server{
		echo:    e,
		faqs:    faqs,
		queries: queries,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Legacy search surface: logical errors in a 200 body.
	search := s.echo.Group("/search", auth.Middleware(s.config.APIKeySecret, false, s.logger))
	search.GET("/:email", s.handleSearch)

	// Mutations: same credential gate, conventional status codes.
	faqs := s.echo.Group("/faqs", auth.Middleware(s.config.APIKeySecret, true, s.logger))
	faqs.POST("/:email", s.handleAdd)
	faqs.DELETE("/:email/:id", s.handleDelete)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
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

// handleHealth reports service and store health.
func (s *Server) handleHealth(c echo.Context) error {
	if err := s.faqs.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
