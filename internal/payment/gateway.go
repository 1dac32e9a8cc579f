// Package payment drives the hosted-checkout flow: creating checkout sessions
// and reconciling completed sessions into paid parcels and payment records.
package payment

import (
	"context" // context carries deadlines and cancellation
	"errors"  // errors for sentinel matching
	"fmt"     // fmt wraps errors with context
)

var (
	ErrInvalidAmount   = errors.New("payment amount must be greater than zero")
	ErrInvalidInput    = errors.New("invalid checkout input")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrGateway         = errors.New("payment gateway error")
	// ErrPaymentIncomplete is returned for sessions whose payment status is not paid.
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// PaymentIncompleteError carries the gateway status of an unpaid session.
type PaymentIncompleteError struct {
	SessionID string
	Status    string
}

func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("session %s: payment status %q", e.SessionID, e.Status)
}

func (e *PaymentIncompleteError) Unwrap() error { return ErrPaymentIncomplete }

// CheckoutRequest describes a one-item, one-time checkout.
type CheckoutRequest struct {
	AmountMinor   int64
	Currency      string
	ProductName   string
	ParcelID      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the gateway's view of a session, reduced to what
// reconciliation reads.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	TransactionID string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
}

// SessionPaid is the gateway payment status for a settled session.
const SessionPaid = "paid"

// Metadata keys attached at checkout and read back on reconciliation.
const (
	MetaParcelID   = "parcelId"
	MetaParcelName = "parcelName"
)

// Gateway is the hosted payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}
