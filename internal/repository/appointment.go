package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/server"
)

type AppointmentRepository struct {
	server *server.Server
}

func NewAppointmentRepository(s *server.Server) *AppointmentRepository {
	return &AppointmentRepository{server: s}
}

const getAppointmentQuery = `
SELECT
	a.id::text AS id,
	a.patient_id,
	COALESCE(d.user_id, '') AS doctor_user_id,
	a.appointment_sheet_url
FROM appointments a
LEFT JOIN doctors d ON d.id = a.doctor_id
WHERE a.id = $1`

// GetAppointment returns the appointment with its doctor's user id.
// An appointment without a doctor yields an empty DoctorUserID.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	rows, err := r.server.DB.Pool.Query(ctx, getAppointmentQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, "query appointment")
	}

	appt, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Appointment])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan appointment")
	}

	return appt, nil
}
