package model // rider applications

import (
	"fmt"  // fmt wraps errors with context
	"time" // time for timestamps and timeouts
)

// RiderStatus tracks a rider application through review.
type RiderStatus string

const (
	RiderPending  RiderStatus = "pending"
	RiderActive   RiderStatus = "active"
	RiderRejected RiderStatus = "rejected"
)

// ParseRiderStatus validates a raw status value.
func ParseRiderStatus(s string) (RiderStatus, error) {
	switch RiderStatus(s) {
	case RiderPending, RiderActive, RiderRejected:
		return RiderStatus(s), nil
	}
	return "", fmt.Errorf("unknown rider status %q", s)
}

// Rider is an application to deliver parcels. Status is always assigned by
// the server.
type Rider struct {
	ID               string      `json:"_id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Age              int         `json:"age,omitempty"`
	Region           string      `json:"region,omitempty"`
	District         string      `json:"district,omitempty"`
	NID              string      `json:"nid,omitempty"`
	Contact          string      `json:"contact,omitempty"`
	BikeBrand        string      `json:"bikeBrand,omitempty"`
	BikeRegistration string      `json:"bikeRegistration,omitempty"`
	Status           RiderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
}
