package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parcel-shipping/internal/handler" // HTTP handlers
)

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Welcome)
	// load balancers and monitoring poll this
	e.GET("/healthz", handler.Health)
}

// RegisterParcels registers the parcel booking endpoints. Booking is open to
// the client application without a token.
func RegisterParcels(e *echo.Echo, p *handler.ParcelHandler) {
	e.GET("/parcels", p.List)
	e.POST("/parcels", p.Create)
	e.GET("/parcels/:id", p.Get)
	e.DELETE("/parcels/:id", p.Delete)
}

// RegisterUsers registers account creation and role lookup.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler) {
	e.POST("/users", u.Create)
	e.GET("/users/:email/role", u.Role)
}
