// Package router builds the echo instance: global middleware chain,
// system routes and the authenticated v1 API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/careportal/internal/handler"
	"github.com/deppfellow/careportal/internal/middleware"
	"github.com/deppfellow/careportal/internal/server"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Order matters: tracing needs the request id, the context logger
	// needs the transaction, and the request logger needs the context
	// logger. The rate limiter runs last so rejections are logged.
	router.Use(
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.RateLimit.Limit(),
	)

	registerSystemRoutes(router, h)

	v1 := router.Group("/api/v1", middlewares.Auth.RequireAuth)
	registerV1Routes(v1, h)

	return router
}

func registerV1Routes(g *echo.Group, h *handler.Handlers) {
	appointments := g.Group("/appointments")
	appointments.GET("/:appointmentId/appointment-sheet", handler.Handle(
		h.Appointment.GetAppointmentSheet,
		http.StatusOK,
		&handler.GetAppointmentSheetRequest{},
	))

	certificates := g.Group("/certificates")
	certificates.POST("/issue", handler.Handle(
		h.Certificate.Issue,
		http.StatusOK,
		&handler.IssueCertificateRequest{},
	))
	certificates.GET("/my", handler.Handle(
		h.Certificate.ListMine,
		http.StatusOK,
		&handler.ListMyCertificatesRequest{},
	))
	certificates.GET("/:id/download", handler.Handle(
		h.Certificate.Download,
		http.StatusOK,
		&handler.DownloadCertificateRequest{},
	))
}
