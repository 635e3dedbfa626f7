package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/errs"
	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/storage"
)

const (
	msgAppointmentNotFound = "Appointment not found"
	msgSheetNotAvailable   = "Appointment sheet not available"
	msgAccessDenied        = "Access denied"
)

type AppointmentServiceDeps struct {
	Appointments AppointmentStore
	Signer       ObjectSigner
	Policy       access.Policy
	Bucket       string
	Timeout      time.Duration
}

type AppointmentService struct {
	appointments AppointmentStore
	signer       ObjectSigner
	policy       access.Policy
	bucket       string
	timeout      time.Duration
}

func NewAppointmentService(deps AppointmentServiceDeps) *AppointmentService {
	return &AppointmentService{
		appointments: deps.Appointments,
		signer:       deps.Signer,
		policy:       deps.Policy,
		bucket:       deps.Bucket,
		timeout:      deps.Timeout,
	}
}

// GetAppointmentSheetURL returns a signed link to the appointment's sheet.
//
// The policy runs before the sheet is inspected so a denied caller cannot
// tell whether a sheet exists.
func (s *AppointmentService) GetAppointmentSheetURL(ctx context.Context, rc access.RequestContext, appointmentID string) (string, error) {
	logger := zerolog.Ctx(ctx)

	var appt *model.Appointment
	err := upstream(ctx, s.timeout, "get appointment", func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetAppointment(ctx, appointmentID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.NewNotFoundError(msgAppointmentNotFound, false, nil)
		}
		return "", err
	}

	if s.policy.AppointmentSheet(rc, appt) != access.Permit {
		logger.Warn().
			Str("appointment_id", appointmentID).
			Msg("appointment sheet access denied")
		return "", errs.NewForbiddenError(msgAccessDenied, false)
	}

	if appt.AppointmentSheetURL == nil || *appt.AppointmentSheetURL == "" {
		return "", errs.NewNotFoundError(msgSheetNotAvailable, false, nil)
	}

	key, err := storage.ObjectKeyFromURL(*appt.AppointmentSheetURL)
	if err != nil {
		return "", errors.Wrapf(err, "appointment %s", appointmentID)
	}

	var url string
	err = upstream(ctx, s.timeout, "sign appointment sheet", func(ctx context.Context) error {
		var err error
		url, err = s.signer.IssueSignedURL(ctx, s.bucket, key)
		return err
	})
	if err != nil {
		return "", err
	}

	return url, nil
}
