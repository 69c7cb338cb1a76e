package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
)

// statusFor maps a booking error kind to an HTTP status.
func statusFor(err error) int {
	switch booking.KindOf(err) {
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	case booking.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": text}.  Unknown
// errors are not echoed back to the client.
func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	body := echo.Map{"error": booking.KindOf(err).String(), "message": err.Error()}
	if code == http.StatusInternalServerError {
		body = echo.Map{"error": "internal", "message": "internal error"}
	}
	var be *booking.Error
	if errors.As(err, &be) && be.Entity != "" {
		body["entity"] = be.Entity
	}
	if booking.IsUnknownOutcome(err) {
		body["outcome_unknown"] = true
	}
	return c.JSON(code, body)
}
