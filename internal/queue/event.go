// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time" // time for timestamps and timeouts

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// PaymentConfirmedQueue is the durable queue payment events are routed to.
const PaymentConfirmedQueue = "payment.confirmed"

// PaymentConfirmedEvent is published when a checkout session is reconciled
// into a paid parcel. It carries enough for consumers to log or notify
// without reading the primary store.
type PaymentConfirmedEvent struct {
	PaymentID     string  `json:"payment_id"`
	ParcelID      string  `json:"parcel_id"`
	ParcelName    string  `json:"parcel_name"`
	CustomerEmail string  `json:"customer_email"`
	TransactionID string  `json:"transaction_id"`
	TrackingID    string  `json:"tracking_id"`
	Currency      string  `json:"currency"`
	Amount        float64 `json:"amount"`
	PaidAt        string  `json:"paid_at"`
}

func NewPaymentConfirmedEvent(p model.Payment) PaymentConfirmedEvent {
	return PaymentConfirmedEvent{
		PaymentID:     p.ID,
		ParcelID:      p.ParcelID,
		ParcelName:    p.ParcelName,
		CustomerEmail: p.CustomerEmail,
		TransactionID: p.TransactionID,
		TrackingID:    p.TrackingID,
		Currency:      p.Currency,
		Amount:        p.Amount,
		PaidAt:        p.PaidAt.UTC().Format(time.RFC3339),
	}
}
