package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/careportal/internal/handler"
)

// registerSystemRoutes mounts the unauthenticated operational endpoints.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	// openapi.json and the docs page assets.
	r.Static("/static", "static")

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
