package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/server"
)

const openAPIUIPath = "static/openapi.html"

// OpenAPIHandler serves the API reference page, which loads
// static/openapi.json.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	page, err := os.ReadFile(openAPIUIPath)
	if err != nil {
		return errors.Wrap(err, "failed to read OpenAPI UI template")
	}

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err := c.HTMLBlob(http.StatusOK, page); err != nil {
		return errors.Wrap(err, "failed to write HTML response")
	}
	return nil
}
