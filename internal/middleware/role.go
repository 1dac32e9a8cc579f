package middleware // role based access

import (
	"context"  // context carries deadlines and cancellation
	"errors"   // errors for sentinel matching
	"net/http" // http defines status code constants
	"time"     // time for timestamps and timeouts

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// ContextRole is the echo.Context key holding the caller's stored role.
const ContextRole = "role"

// RequireRole loads the caller's role from the user store and aborts with
// 403 unless it is one of roles. It must run after BearerAuth.
func RequireRole(users repository.UserStore, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email := CurrentEmail(c)
			if email == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByEmail(ctx, email)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load user"})
			}
			if !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			c.Set(ContextRole, u.Role)
			return next(c)
		}
	}
}
