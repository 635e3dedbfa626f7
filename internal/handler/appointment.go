package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/careportal/internal/middleware"
	"github.com/deppfellow/careportal/internal/server"
	"github.com/deppfellow/careportal/internal/service"
	"github.com/deppfellow/careportal/internal/validation"
)

type GetAppointmentSheetRequest struct {
	AppointmentID string `param:"appointmentId" validate:"required,uuid"`
}

func (r *GetAppointmentSheetRequest) Validate() error {
	return validation.Validator().Struct(r)
}

// SignedURLResponse carries a short-lived download link.
type SignedURLResponse struct {
	URL string `json:"url"`
}

type AppointmentHandler struct {
	Handler
	appointmentService *service.AppointmentService
}

func NewAppointmentHandler(s *server.Server, appointmentService *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		Handler:            NewHandler(s),
		appointmentService: appointmentService,
	}
}

func (h *AppointmentHandler) GetAppointmentSheet(c echo.Context, req *GetAppointmentSheetRequest) (*SignedURLResponse, error) {
	url, err := h.appointmentService.GetAppointmentSheetURL(
		c.Request().Context(),
		middleware.GetRequestContext(c),
		req.AppointmentID,
	)
	if err != nil {
		return nil, err
	}
	return &SignedURLResponse{URL: url}, nil
}
