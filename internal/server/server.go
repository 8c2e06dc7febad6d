// Package server exposes the feedback endpoints, health and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/meetcost/internal/middleware"
	"github.com/mmynk/meetcost/internal/service"
)

// requestValidator implements echo.Validator using go-playground/validator.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// Server is the meetcost HTTP server.
type Server struct {
	echo     *echo.Echo
	feedback *service.FeedbackService
}

// New creates a Server. Metrics are served from gatherer.
func New(fb *service.FeedbackService, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	s := &Server{echo: e, feedback: fb}

	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := e.Group("/v1")
	v1.GET("/feedback/:link", s.getFeedbackForm)
	v1.POST("/feedback/:link", s.submitFeedback)
	v1.GET("/meetings/:token/feedback", s.getFeedbackReport)

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	slog.Info("HTTP server starting", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
