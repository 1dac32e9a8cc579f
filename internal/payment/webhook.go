package payment

import (
	"encoding/json" // json encodes payloads
	"errors"        // errors for sentinel matching
	"fmt"           // fmt wraps errors with context

	"github.com/stripe/stripe-go/v79"         // Stripe API types
	"github.com/stripe/stripe-go/v79/webhook" // Stripe webhook signatures
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

const eventCheckoutCompleted = "checkout.session.completed"

// WebhookVerifier authenticates Stripe webhook deliveries.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// CompletedSession verifies the payload and returns the session id of a
// checkout.session.completed event. Other event types yield "" and no error.
func (v *WebhookVerifier) CompletedSession(payload []byte, sigHeader string) (string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if string(event.Type) != eventCheckoutCompleted {
		return "", nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return "", fmt.Errorf("%w: decode session: %v", ErrInvalidInput, err)
	}
	if s.ID == "" {
		return "", fmt.Errorf("%w: event without session id", ErrInvalidInput)
	}
	return s.ID, nil
}
