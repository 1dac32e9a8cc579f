package handler // error to status mapping

import (
	"context"  // context carries deadlines and cancellation
	"errors"   // errors for sentinel matching
	"log/slog" // structured logging
	"net/http" // http defines status code constants
	"time"     // time for timestamps and timeouts

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/auth"       // identity token verification
	"github.com/iliyamo/parcel-shipping/internal/payment"    // checkout and reconciliation
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

const storeTimeout = 5 * time.Second

// writeError maps domain errors to HTTP responses. Anything unrecognised is
// logged and returned as 500 without leaking the cause.
func writeError(c echo.Context, err error) error {
	var incomplete *payment.PaymentIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":         "payment not completed",
			"sessionId":     incomplete.SessionID,
			"paymentStatus": incomplete.Status,
		})
	case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, payment.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "checkout session not found"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrAlreadyPaid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "parcel already paid"})
	case errors.Is(err, payment.ErrGateway):
		slog.Error("payment gateway error", "path", c.Path(), "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway error"})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, context.DeadlineExceeded):
		slog.Error("request timed out", "path", c.Path(), "error", err)
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	slog.Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
