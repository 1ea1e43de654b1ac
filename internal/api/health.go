package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports that the process is serving
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
