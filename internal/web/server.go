// Package web exposes the project facade over HTTP. It is a thin
// adapter: every route binds its input, calls the service, and renders
// the result through the shared error taxonomy.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/service"
)

// Server serves the project API.
type Server struct {
	echo     *echo.Echo
	projects *service.Service
	logger   *logging.Logger
	config   *Config
}

// Config holds the listen address.
type Config struct {
	Host string
	Port int
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(projects *service.Service, logger *logging.Logger, cfg *Config) (*Server, error) {
	if projects == nil {
		return nil, fmt.Errorf("project service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 7070}
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

	s := &Server{
		echo:     e,
		projects: projects,
		logger:   logger.Named("web"),
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/projects", s.handleList)
	v1.POST("/projects", s.handleCreate)
	v1.GET("/projects/:id", s.handleGet)
	v1.PATCH("/projects/:id", s.handleUpdate)
	v1.DELETE("/projects/:id", s.handleDelete)
	v1.POST("/projects/:id/active", s.handleSetActive)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorBody is the error envelope rendered for every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the shared error kind plus kind-specific extras.
type ErrorDetail struct {
	Kind        string              `json:"kind"`
	Message     string              `json:"message"`
	Violations  []project.Violation `json:"violations,omitempty"`
	Suggestions []string            `json:"suggestions,omitempty"`
}

// CreateRequest is the request body for POST /api/v1/projects.
type CreateRequest struct {
	Name          string                    `json:"name"`
	Code          string                    `json:"code"`
	Path          string                    `json:"path"`
	TicketsPath   string                    `json:"ticketsPath,omitempty"`
	Description   string                    `json:"description,omitempty"`
	RepositoryURL string                    `json:"repositoryUrl,omitempty"`
	GlobalOnly    bool                      `json:"globalOnly,omitempty"`
	Document      *project.DocumentSettings `json:"document,omitempty"`
}

// UpdateRequest is the request body for PATCH /api/v1/projects/:id.
// Absent fields are left unchanged.
type UpdateRequest struct {
	Name          *string                   `json:"name,omitempty"`
	Code          *string                   `json:"code,omitempty"`
	TicketsPath   *string                   `json:"ticketsPath,omitempty"`
	Description   *string                   `json:"description,omitempty"`
	RepositoryURL *string                   `json:"repositoryUrl,omitempty"`
	Document      *project.DocumentSettings `json:"document,omitempty"`
}

// ActiveRequest is the request body for POST /api/v1/projects/:id/active.
type ActiveRequest struct {
	Active bool `json:"active"`
}

// ListResponse is the response body for GET /api/v1/projects.
type ListResponse struct {
	Projects []*project.Record `json:"projects"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleList(c echo.Context) error {
	recs, err := s.projects.List(c.Request().Context())
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(http.StatusOK, ListResponse{Projects: recs})
}

func (s *Server) handleCreate(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid create request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Kind:    service.KindValidation,
			Message: "invalid request body",
		}})
	}

	spec := service.CreateSpec{
		Name:          req.Name,
		Code:          req.Code,
		Path:          req.Path,
		TicketsPath:   req.TicketsPath,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		GlobalOnly:    req.GlobalOnly,
	}
	if req.Document != nil {
		spec.Document = *req.Document
	}

	rec, err := s.projects.Create(c.Request().Context(), spec)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleGet(c echo.Context) error {
	rec, err := s.projects.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleUpdate(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Kind:    service.KindValidation,
			Message: "invalid request body",
		}})
	}

	rec, err := s.projects.Update(c.Request().Context(), c.Param("id"), service.Patch{
		Name:          req.Name,
		Code:          req.Code,
		TicketsPath:   req.TicketsPath,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		Document:      req.Document,
	})
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDelete(c echo.Context) error {
	if err := s.projects.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetActive(c echo.Context) error {
	var req ActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Kind:    service.KindValidation,
			Message: "invalid request body",
		}})
	}

	rec, err := s.projects.SetActive(c.Request().Context(), c.Param("id"), req.Active)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// renderError maps a facade error onto the envelope and an HTTP status.
func (s *Server) renderError(c echo.Context, err error) error {
	kind := service.ErrorKind(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("kind", kind), zap.Error(err))
	}

	return c.JSON(status, ErrorBody{Error: ErrorDetail{
		Kind:        kind,
		Message:     err.Error(),
		Violations:  service.Violations(err),
		Suggestions: service.Suggestions(err),
	}})
}

func statusFor(kind string) int {
	switch kind {
	case service.KindValidation, service.KindPath:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindExists:
		return http.StatusConflict
	case service.KindParse:
		return http.StatusUnprocessableEntity
	case service.KindCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
