package router // payment and webhook routes

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/auth"       // identity token verification
	"github.com/iliyamo/parcel-shipping/internal/handler"    // HTTP handlers
	"github.com/iliyamo/parcel-shipping/internal/middleware" // request middleware
)

// RegisterPayments registers checkout and reconciliation. Reconciliation is
// keyed by the gateway session id and safe to repeat, so it needs no token.
// Payment history requires a verified identity token.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, v auth.Verifier) {
	e.POST("/create-checkout-session", h.CreateCheckoutSession)
	e.PATCH("/payment-success/:sessionId", h.PaymentSuccess)
	e.GET("/payments", h.ListPayments, middleware.BearerAuth(v))
}

// RegisterWebhooks registers the Stripe webhook when a signing secret is configured.
func RegisterWebhooks(e *echo.Echo, h *handler.WebhookHandler) {
	if h == nil {
		return
	}
	e.POST("/webhooks/stripe", h.Stripe)
}
