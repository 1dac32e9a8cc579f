// Package auth verifies identity tokens issued by the external identity
// provider. The rest of the service only needs the verified email.
package auth

import (
	"context"    // context carries deadlines and cancellation
	"crypto/rsa" // rsa public keys for token checks
	"errors"     // errors for sentinel matching
	"fmt"        // fmt wraps errors with context
	"strings"    // strings trims and normalises text

	"github.com/golang-jwt/jwt/v5" // JWT parsing and signing
)

var ErrUnauthorized = errors.New("unauthorized")

// Verifier turns a bearer token into a verified email address.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (string, error) { return f(ctx, token) }

// IdentityClaims are the claims read from an identity token.
type IdentityClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates signed JWTs with a fixed key.
type JWTVerifier struct {
	key  interface{}
	opts []jwt.ParserOption
}

// Options narrows which tokens are accepted. Empty fields are not checked.
type Options struct {
	Issuer   string
	Audience string
}

// NewHMACVerifier accepts HS256/384/512 tokens signed with secret.
func NewHMACVerifier(secret string, o Options) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: empty HMAC secret")
	}
	return newVerifier([]byte(secret), []string{"HS256", "HS384", "HS512"}, o), nil
}

// NewRSAVerifier accepts RS256/384/512 tokens signed by the key matching pemKey.
func NewRSAVerifier(pemKey []byte, o Options) (*JWTVerifier, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return NewRSAVerifierFromKey(pub, o), nil
}

func NewRSAVerifierFromKey(pub *rsa.PublicKey, o Options) *JWTVerifier {
	return newVerifier(pub, []string{"RS256", "RS384", "RS512"}, o)
}

func newVerifier(key interface{}, methods []string, o Options) *JWTVerifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if o.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(o.Issuer))
	}
	if o.Audience != "" {
		opts = append(opts, jwt.WithAudience(o.Audience))
	}
	return &JWTVerifier{key: key, opts: opts}
}

// Verify checks signature, expiry and the optional issuer/audience, then
// returns the lower-cased email claim.
func (v *JWTVerifier) Verify(_ context.Context, raw string) (string, error) {
	var claims IdentityClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, v.opts...)
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return "", fmt.Errorf("%w: email not verified", ErrUnauthorized)
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return "", fmt.Errorf("%w: token has no email claim", ErrUnauthorized)
	}
	return email, nil
}
