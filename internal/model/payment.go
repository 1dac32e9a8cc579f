package model // confirmed payment records

import "time" // time for timestamps and timeouts

// Payment is the immutable record of one completed gateway transaction.
// TransactionID is unique across all payments.
//
// Fields:
//
//	ID            – store-assigned identifier.
//	ParcelID      – parcel the payment was made for (reference only).
//	ParcelName    – display name copied from the checkout session.
//	CustomerEmail – email reported by the gateway.
//	Currency      – ISO currency code in lower case (e.g. usd).
//	Amount        – major units; the gateway amount in minor units / 100.
//	TransactionID – gateway payment intent id.
//	TrackingID    – tracking code issued for the parcel.
//	PaidAt        – when this service observed the payment.
//	PaymentStatus – always PaymentPaid for recorded payments.
type Payment struct {
	ID            string        `json:"_id"`
	ParcelID      string        `json:"parcelId"`
	ParcelName    string        `json:"parcelName"`
	CustomerEmail string        `json:"customerEmail"`
	Currency      string        `json:"currency"`
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transactionId"`
	TrackingID    string        `json:"trackingId"`
	PaidAt        time.Time     `json:"paidAt"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}
