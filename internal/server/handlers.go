package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mmynk/meetcost/internal/feedback"
	"github.com/mmynk/meetcost/internal/models"
)

type submitFeedbackRequest struct {
	Useful       *bool  `json:"useful" validate:"required"`
	Improvements string `json:"improvements" validate:"max=2000"`
}

func (s *Server) getFeedbackForm(c echo.Context) error {
	form, err := s.feedback.Lookup(c.Request().Context(), c.Param("link"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, form)
}

func (s *Server) submitFeedback(c echo.Context) error {
	var req submitFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return httpError(err)
	}

	err := s.feedback.Submit(c.Request().Context(), c.Param("link"), *req.Useful, req.Improvements)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "accepted"})
}

func (s *Server) getFeedbackReport(c echo.Context) error {
	summary, err := s.feedback.Report(c.Request().Context(), c.Param("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// httpError maps domain errors to HTTP errors. Unknown errors become a
// generic 500 and are logged.
func httpError(err error) error {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return echo.NewHTTPError(http.StatusBadRequest, verrs.Error())
	case errors.Is(err, feedback.ErrInvalidLink):
		return echo.NewHTTPError(http.StatusForbidden, feedback.ErrInvalidLink.Error())
	case errors.Is(err, models.ErrParticipantNotFound), errors.Is(err, models.ErrMeetingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrFeedbackAlreadySubmitted):
		return echo.NewHTTPError(http.StatusConflict, models.ErrFeedbackAlreadySubmitted.Error())
	case errors.Is(err, models.ErrInvalidFeedback):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, models.ErrInvalidFeedback.Error())
	default:
		slog.Error("Request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
