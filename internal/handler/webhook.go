package handler // Stripe webhook endpoint

import (
	"errors"   // errors for sentinel matching
	"io"       // io bounds request bodies
	"log/slog" // structured logging
	"net/http" // http defines status code constants

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/payment" // checkout and reconciliation
)

// Stripe caps webhook payloads well below this.
const maxWebhookBody = 64 << 10

// WebhookHandler receives Stripe events and feeds completed checkouts to
// the same reconciler the redirect flow uses.
type WebhookHandler struct {
	Verifier   *payment.WebhookVerifier
	Reconciler *payment.Reconciler
	Logger     *slog.Logger
}

func NewWebhookHandler(v *payment.WebhookVerifier, rec *payment.Reconciler, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{Verifier: v, Reconciler: rec, Logger: logger}
}

// Stripe handles POST /webhooks/stripe. A 2xx tells Stripe to stop
// retrying, so only transient failures return 5xx.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sessionID, err := h.Verifier.CompletedSession(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		h.Logger.Warn("stripe webhook rejected", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook"})
	}
	if sessionID == "" {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	receipt, err := h.Reconciler.Reconcile(c.Request().Context(), sessionID)
	switch {
	case errors.Is(err, payment.ErrPaymentIncomplete):
		// delayed payment methods complete the session before funds settle
		h.Logger.Info("stripe webhook: session not paid yet", "session_id", sessionID)
		return c.JSON(http.StatusOK, echo.Map{"received": true, "processed": false})
	case err != nil:
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"received":         true,
		"processed":        true,
		"alreadyProcessed": receipt.AlreadyProcessed,
		"trackingId":       receipt.TrackingID,
	})
}
