package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/server"
)

type EnrollmentRepository struct {
	server *server.Server
}

func NewEnrollmentRepository(s *server.Server) *EnrollmentRepository {
	return &EnrollmentRepository{server: s}
}

const getEnrollmentQuery = `
SELECT user_id, course_id, progress, certificate_url, updated_at
FROM student_courses
WHERE user_id = $1 AND course_id = $2`

// GetEnrollmentForUser is always keyed by the owner, so a caller can only
// ever read rows it passes its own id for.
func (r *EnrollmentRepository) GetEnrollmentForUser(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	rows, err := r.server.DB.Pool.Query(ctx, getEnrollmentQuery, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query enrollment")
	}

	enrollment, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Enrollment])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan enrollment")
	}

	return enrollment, nil
}

const markCertificateIssuedQuery = `
UPDATE student_courses
SET certificate_url = $3, progress = 100, updated_at = now()
WHERE user_id = $1 AND course_id = $2
RETURNING COALESCE((SELECT title FROM courses WHERE courses.id = student_courses.course_id), '')`

// MarkCertificateIssued sets the certificate and completes the enrollment.
// It returns the course title, or pgx.ErrNoRows when no enrollment exists.
func (r *EnrollmentRepository) MarkCertificateIssued(ctx context.Context, userID, courseID, certificateURL string) (string, error) {
	var title string
	err := r.server.DB.Pool.QueryRow(ctx, markCertificateIssuedQuery, userID, courseID, certificateURL).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		return "", errors.Wrap(err, "mark certificate issued")
	}

	return title, nil
}

const listCertificatesQuery = `
SELECT
	sc.course_id,
	COALESCE(c.title, '') AS course_title,
	sc.progress,
	sc.certificate_url,
	sc.updated_at AS issued_at
FROM student_courses sc
LEFT JOIN courses c ON c.id = sc.course_id
WHERE sc.user_id = $1 AND sc.certificate_url IS NOT NULL
ORDER BY sc.updated_at DESC`

func (r *EnrollmentRepository) ListCertificates(ctx context.Context, userID string) ([]model.CertificateSummary, error) {
	rows, err := r.server.DB.Pool.Query(ctx, listCertificatesQuery, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query certificates")
	}

	certificates, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.CertificateSummary])
	if err != nil {
		return nil, errors.Wrap(err, "scan certificates")
	}

	return certificates, nil
}
