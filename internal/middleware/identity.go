package middleware // caller identity helpers

// identity.go holds the context helpers shared by the auth, role, rate-limit
// and cache middleware.

import (
	"github.com/labstack/echo/v4" // Echo web framework
)

// CurrentEmail returns the verified caller email, or "" for anonymous requests.
func CurrentEmail(c echo.Context) string {
	if v, ok := c.Get(ContextEmail).(string); ok {
		return v
	}
	return ""
}

// identity is the caller key used by rate limiting; anonymous callers share "guest".
func identity(c echo.Context) string {
	if e := CurrentEmail(c); e != "" {
		return e
	}
	return "guest"
}
