package payment

import (
	"context" // context carries deadlines and cancellation
	"fmt"     // fmt wraps errors with context
	"math"    // math for rounding money
	"strings" // strings trims and normalises text
)

const defaultCurrency = "usd"

// ToMinorUnits converts a decimal amount to cents, truncating any fraction
// of a cent. The epsilon absorbs binary representation error so 25.50 is
// 2550 and not 2549.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Floor(amount*100 + 1e-6))
}

// FromMinorUnits converts cents back to a decimal amount.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// CheckoutInput is what a client submits to start paying for a parcel.
type CheckoutInput struct {
	Cost          float64
	ParcelName    string
	ParcelID      string
	CustomerEmail string
}

// Initiator builds checkout sessions with redirect URLs rooted at the site domain.
type Initiator struct {
	gateway    Gateway
	siteDomain string
}

func NewInitiator(gateway Gateway, siteDomain string) *Initiator {
	return &Initiator{gateway: gateway, siteDomain: strings.TrimRight(siteDomain, "/")}
}

// SuccessURL keeps the {CHECKOUT_SESSION_ID} placeholder for the gateway to fill in.
func (i *Initiator) SuccessURL() string {
	return i.siteDomain + "/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

func (i *Initiator) CancelURL() string {
	return i.siteDomain + "/dashboard/payment-cancelled"
}

// Start creates a hosted checkout session and returns its URL.
func (i *Initiator) Start(ctx context.Context, in CheckoutInput) (string, error) {
	if math.IsNaN(in.Cost) || math.IsInf(in.Cost, 0) {
		return "", ErrInvalidAmount
	}
	amount := ToMinorUnits(in.Cost)
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	if strings.TrimSpace(in.ParcelID) == "" || strings.TrimSpace(in.ParcelName) == "" {
		return "", fmt.Errorf("%w: parcelId and parcelName are required", ErrInvalidInput)
	}

	sess, err := i.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		AmountMinor:   amount,
		Currency:      defaultCurrency,
		ProductName:   in.ParcelName,
		ParcelID:      in.ParcelID,
		CustomerEmail: in.CustomerEmail,
		SuccessURL:    i.SuccessURL(),
		CancelURL:     i.CancelURL(),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
