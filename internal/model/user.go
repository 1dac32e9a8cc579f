package model // account records and roles

import (
	"fmt"  // fmt wraps errors with context
	"time" // time for timestamps and timeouts
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleRider Role = "rider"
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role value.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleRider, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User represents a registered account.  Identity itself lives with the
// external identity provider; this record only carries profile data and
// the role the platform grants.
//
// Fields:
//
//	ID          – store-assigned identifier.
//	Email       – unique, lower-cased email address.
//	DisplayName – name shown in the dashboard.
//	PhotoURL    – avatar URL supplied by the client.
//	Role        – user, rider or admin; new users always start as user.
//	CreatedAt   – timestamp of creation.
type User struct {
	ID          string    `json:"_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
