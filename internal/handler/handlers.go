package handler

import (
	"github.com/deppfellow/careportal/internal/server"
	"github.com/deppfellow/careportal/internal/service"
)

// Handlers groups every HTTP handler for the router.
type Handlers struct {
	Health      *HealthHandler
	OpenAPI     *OpenAPIHandler
	Appointment *AppointmentHandler
	Certificate *CertificateHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(s),
		OpenAPI:     NewOpenAPIHandler(s),
		Appointment: NewAppointmentHandler(s, services.Appointment),
		Certificate: NewCertificateHandler(s, services.Certificate),
	}
}
