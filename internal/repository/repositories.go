package repository

import (
	"github.com/deppfellow/careportal/internal/server"
)

type Repositories struct {
	Appointment  *AppointmentRepository
	Enrollment   *EnrollmentRepository
	Notification *NotificationRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Appointment:  NewAppointmentRepository(s),
		Enrollment:   NewEnrollmentRepository(s),
		Notification: NewNotificationRepository(s),
	}
}
