package router // rider routes guarded by admin role

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/auth"       // identity token verification
	"github.com/iliyamo/parcel-shipping/internal/handler"    // HTTP handlers
	"github.com/iliyamo/parcel-shipping/internal/middleware" // request middleware
	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// RegisterRiders registers rider applications. Anyone may apply; listing
// and reviewing applications requires the admin role.
func RegisterRiders(e *echo.Echo, h *handler.RiderHandler, v auth.Verifier, users repository.UserStore) {
	e.POST("/riders", h.Create)

	admin := []echo.MiddlewareFunc{
		middleware.BearerAuth(v),
		middleware.RequireRole(users, model.RoleAdmin),
	}
	e.GET("/riders", h.List, admin...)
	e.PATCH("/riders/:id", h.UpdateStatus, admin...)
}
