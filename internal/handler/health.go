package handler // liveness endpoints

import (
	"net/http" // http defines status code constants

	"github.com/labstack/echo/v4" // Echo web framework
)

// Health is used by load balancers and monitoring to check the process is up.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "welcome to zap shift server."})
}
