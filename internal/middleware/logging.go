// Package middleware holds echo middleware shared by the HTTP server.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns echo middleware that logs every request.
// It logs the route, status, and duration. Server errors log at error level,
// client errors at warn level.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo write the response so the logged status is final.
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			attrs := []any{
				"method", req.Method,
				"route", c.Path(),
				"status", status,
				"remote_addr", c.RealIP(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}

			switch {
			case status >= 500:
				slog.Error("HTTP request failed", attrs...)
			case status >= 400:
				slog.Warn("HTTP request rejected", attrs...)
			default:
				slog.Info("HTTP request ok", attrs...)
			}

			return nil
		}
	}
}
