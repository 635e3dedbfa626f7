package service

import (
	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/lib/job"
	"github.com/deppfellow/careportal/internal/repository"
	"github.com/deppfellow/careportal/internal/server"
)

type Services struct {
	Auth        *AuthService
	Job         *job.JobService
	Appointment *AppointmentService
	Certificate *CertificateService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService := NewAuthService(s)
	timeout := s.UpstreamTimeout()
	policy := access.NewPolicy(s.Config.Auth.AdminRole)

	appointmentService := NewAppointmentService(AppointmentServiceDeps{
		Appointments: repos.Appointment,
		Signer:       s.Storage,
		Policy:       policy,
		Bucket:       s.Config.Storage.AppointmentSheetBucket,
		Timeout:      timeout,
	})

	certificateService := NewCertificateService(CertificateServiceDeps{
		Enrollments:   repos.Enrollment,
		Notifications: repos.Notification,
		Signer:        s.Storage,
		Policy:        policy,
		Notifier:      s.Job,
		Bucket:        s.Config.Storage.CertificateBucket,
		Timeout:       timeout,
	})

	return &Services{
		Auth:        authService,
		Job:         s.Job,
		Appointment: appointmentService,
		Certificate: certificateService,
	}, nil
}
