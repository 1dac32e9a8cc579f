package payment

import (
	"crypto/rand" // rand is a secure random source
	"fmt"         // fmt wraps errors with context
	"strings"     // strings trims and normalises text
)

const trackingPrefix = "TRK-"

// NewTrackingID returns TRK- followed by 8 uppercase hex characters.
// Collisions are not checked against the store.
func NewTrackingID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("tracking id: %w", err)
	}
	return trackingPrefix + strings.ToUpper(fmt.Sprintf("%x", b[:])), nil
}
