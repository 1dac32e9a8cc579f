package model // parcel bookings

import (
	"fmt"  // fmt wraps errors with context
	"time" // time for timestamps and timeouts
)

// PaymentStatus is the payment lifecycle of a parcel. The only legal
// transition is PaymentUnpaid -> PaymentPaid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// ParsePaymentStatus validates a raw status value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPaid:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// ParcelDetails holds the booking form fields that are stored verbatim and
// never interpreted by the server.
type ParcelDetails struct {
	ParcelType          string  `json:"parcelType,omitempty" bson:"parcelType,omitempty"`
	ParcelWeight        float64 `json:"parcelWeight,omitempty" bson:"parcelWeight,omitempty"`
	SenderName          string  `json:"senderName,omitempty" bson:"senderName,omitempty"`
	SenderRegion        string  `json:"senderRegion,omitempty" bson:"senderRegion,omitempty"`
	SenderDistrict      string  `json:"senderDistrict,omitempty" bson:"senderDistrict,omitempty"`
	SenderAddress       string  `json:"senderAddress,omitempty" bson:"senderAddress,omitempty"`
	SenderPhone         string  `json:"senderPhone,omitempty" bson:"senderPhone,omitempty"`
	ReceiverName        string  `json:"receiverName,omitempty" bson:"receiverName,omitempty"`
	ReceiverEmail       string  `json:"receiverEmail,omitempty" bson:"receiverEmail,omitempty"`
	ReceiverRegion      string  `json:"receiverRegion,omitempty" bson:"receiverRegion,omitempty"`
	ReceiverDistrict    string  `json:"receiverDistrict,omitempty" bson:"receiverDistrict,omitempty"`
	ReceiverAddress     string  `json:"receiverAddress,omitempty" bson:"receiverAddress,omitempty"`
	ReceiverPhone       string  `json:"receiverPhone,omitempty" bson:"receiverPhone,omitempty"`
	PickupInstruction   string  `json:"pickupInstruction,omitempty" bson:"pickupInstruction,omitempty"`
	DeliveryInstruction string  `json:"deliveryInstruction,omitempty" bson:"deliveryInstruction,omitempty"`
}

// Parcel is a shipment booking. ID is assigned by the store on insert.
// TrackingID stays nil until the first confirmed payment.
type Parcel struct {
	ID            string        `json:"_id"`           // store-assigned id
	ParcelName    string        `json:"parcelName"`    // display name shown at checkout
	SenderEmail   string        `json:"senderEmail"`   // owner of the booking
	Cost          float64       `json:"cost"`          // quoted price in major units
	PaymentStatus PaymentStatus `json:"paymentStatus"` // unpaid until the first confirmed payment
	TrackingID    *string       `json:"trackingId"`    // issued with the first payment
	CreatedAt     time.Time     `json:"created_at"`    // server stamped on insert
	ParcelDetails
}

// IsPaid reports whether the parcel has been paid for.
func (p *Parcel) IsPaid() bool { return p.PaymentStatus == PaymentPaid }
