package auth

import (
	"time" // time for timestamps and timeouts

	"github.com/golang-jwt/jwt/v5" // JWT parsing and signing
)

// IdentityToken is a signed identity token with its expiry.
type IdentityToken struct {
	Token string
	Exp   time.Time
}

// NewIdentityToken signs an HS256 identity token for email. It stands in for
// the identity provider in local development and tests.
func NewIdentityToken(secret, email string, o Options, ttl time.Duration) (IdentityToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    o.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if o.Audience != "" {
		claims.Audience = jwt.ClaimStrings{o.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IdentityToken{}, err
	}
	return IdentityToken{Token: signed, Exp: exp}, nil
}
