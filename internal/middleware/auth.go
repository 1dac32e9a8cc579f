package middleware // bearer token authentication

import (
	"net/http" // status codes for rejected requests
	"strings"  // header parsing

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/auth" // identity token verification
)

// ContextEmail is the echo.Context key holding the verified caller email.
const ContextEmail = "email"

// bearerToken extracts the raw token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Identify resolves the caller's email when a valid bearer token is present
// and never rejects a request. It runs ahead of rate limiting so per-user
// buckets see the real caller instead of "guest".
func Identify(v auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c); raw != "" {
				if email, err := v.Verify(c.Request().Context(), raw); err == nil {
					c.Set(ContextEmail, email)
				}
			}
			return next(c)
		}
	}
}

// BearerAuth validates the Authorization bearer token with v and stores the
// verified email under ContextEmail. Missing or invalid tokens get 401.
func BearerAuth(v auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if CurrentEmail(c) != "" {
				// already verified by Identify
				return next(c)
			}

			email, err := v.Verify(c.Request().Context(), raw) // check signature, expiry and claims
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextEmail, email)
			return next(c)
		}
	}
}
