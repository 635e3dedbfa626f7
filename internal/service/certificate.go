package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/errs"
	"github.com/deppfellow/careportal/internal/lib/job"
	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/storage"
)

const (
	msgEnrollmentNotFound     = "Enrollment not found"
	msgCertificateNotFound    = "Certificate not found"
	msgCertificateNotIssued   = "Certificate not issued"
	WarningNotificationFailed = "Certificate issued but the notification could not be recorded"
)

type CertificateServiceDeps struct {
	Enrollments   EnrollmentStore
	Notifications NotificationStore
	Signer        ObjectSigner
	// Policy decides who may issue; only its admin role can.
	Policy access.Policy
	// Notifier is optional; nil disables the certificate email.
	Notifier CertificateNotifier
	Bucket   string
	Timeout  time.Duration
}

type CertificateService struct {
	enrollments   EnrollmentStore
	notifications NotificationStore
	signer        ObjectSigner
	policy        access.Policy
	notifier      CertificateNotifier
	bucket        string
	timeout       time.Duration
}

func NewCertificateService(deps CertificateServiceDeps) *CertificateService {
	return &CertificateService{
		enrollments:   deps.Enrollments,
		notifications: deps.Notifications,
		signer:        deps.Signer,
		policy:        deps.Policy,
		notifier:      deps.Notifier,
		bucket:        deps.Bucket,
		timeout:       deps.Timeout,
	}
}

type IssueCertificateInput struct {
	UserID         string
	CourseID       string
	CertificateURL string
}

// IssueCertificateResult reports success of the enrollment update.
// Warning is set when the follow-up notification was not recorded.
type IssueCertificateResult struct {
	OK      bool   `json:"ok"`
	Warning string `json:"warning,omitempty"`
}

func (in IssueCertificateInput) validate() error {
	var fieldErrors []errs.FieldError
	if strings.TrimSpace(in.UserID) == "" {
		fieldErrors = append(fieldErrors, errs.FieldError{Field: "userid", Error: "is required"})
	}
	if strings.TrimSpace(in.CourseID) == "" {
		fieldErrors = append(fieldErrors, errs.FieldError{Field: "courseid", Error: "is required"})
	}
	if strings.TrimSpace(in.CertificateURL) == "" {
		fieldErrors = append(fieldErrors, errs.FieldError{Field: "certificateurl", Error: "is required"})
	}
	if len(fieldErrors) > 0 {
		return errs.NewBadRequestError("Validation failed", true, nil, fieldErrors, nil)
	}
	return nil
}

// Issue records a certificate on the enrollment and then notifies the user.
//
// The two writes are not transactional. Once the enrollment update
// succeeds the certificate counts as issued: a failed notification insert
// is logged and reported through Warning, and the email task is best
// effort.
//
// Only callers holding the admin role may issue; everyone else gets a 403
// before the input is looked at.
func (s *CertificateService) Issue(ctx context.Context, rc access.RequestContext, in IssueCertificateInput) (*IssueCertificateResult, error) {
	if err := requireIdentity(rc); err != nil {
		return nil, err
	}
	if !s.policy.IsAdmin(rc) {
		zerolog.Ctx(ctx).Warn().
			Str("user_id", rc.UserID).
			Msg("certificate issuance denied")
		return nil, errs.NewForbiddenError(msgAccessDenied, false)
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("target_user_id", in.UserID).
		Str("course_id", in.CourseID).
		Str("issued_by", rc.UserID).
		Logger()

	var courseTitle string
	err := upstream(ctx, s.timeout, "mark certificate issued", func(ctx context.Context) error {
		var err error
		courseTitle, err = s.enrollments.MarkCertificateIssued(ctx, in.UserID, in.CourseID, in.CertificateURL)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewNotFoundError(msgEnrollmentNotFound, false, nil)
		}
		return nil, err
	}

	result := &IssueCertificateResult{OK: true}

	err = upstream(ctx, s.timeout, "create notification", func(ctx context.Context) error {
		return s.notifications.CreateNotification(ctx, model.Notification{
			UserID:  in.UserID,
			Message: certificateMessage(courseTitle, in.CourseID),
		})
	})
	if err != nil {
		logger.Warn().Err(err).Msg("certificate issued but notification insert failed")
		result.Warning = WarningNotificationFailed
	}

	if s.notifier != nil {
		payload := job.CertificateIssuedPayload{
			UserID:      in.UserID,
			CourseID:    in.CourseID,
			CourseTitle: courseTitle,
		}
		if err := s.enqueue(ctx, payload); err != nil {
			logger.Error().Err(err).Msg("failed to enqueue certificate issued email")
		}
	}

	logger.Info().Bool("notification_recorded", result.Warning == "").Msg("certificate issued")

	return result, nil
}

// enqueue bounds the queue write by the upstream timeout so a stalled
// Redis cannot hold the response.
func (s *CertificateService) enqueue(ctx context.Context, payload job.CertificateIssuedPayload) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.notifier.EnqueueCertificateIssued(ctx, payload)
}

func certificateMessage(courseTitle, courseID string) string {
	if courseTitle == "" {
		courseTitle = courseID
	}
	return fmt.Sprintf("Your certificate for %s has been issued.", courseTitle)
}

// ListMine returns the requester's issued certificates, newest first.
func (s *CertificateService) ListMine(ctx context.Context, rc access.RequestContext) ([]model.CertificateSummary, error) {
	if err := requireIdentity(rc); err != nil {
		return nil, err
	}

	var certificates []model.CertificateSummary
	err := upstream(ctx, s.timeout, "list certificates", func(ctx context.Context) error {
		var err error
		certificates, err = s.enrollments.ListCertificates(ctx, rc.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if certificates == nil {
		certificates = []model.CertificateSummary{}
	}
	return certificates, nil
}

// DownloadURL signs the requester's own certificate for courseID. The
// lookup is keyed by the requester, so no role can reach another user's
// certificate.
func (s *CertificateService) DownloadURL(ctx context.Context, rc access.RequestContext, courseID string) (string, error) {
	if err := requireIdentity(rc); err != nil {
		return "", err
	}

	var enrollment *model.Enrollment
	err := upstream(ctx, s.timeout, "get enrollment", func(ctx context.Context) error {
		var err error
		enrollment, err = s.enrollments.GetEnrollmentForUser(ctx, rc.UserID, courseID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.NewNotFoundError(msgCertificateNotFound, false, nil)
		}
		return "", err
	}

	if enrollment.CertificateURL == nil || *enrollment.CertificateURL == "" {
		return "", errs.NewNotFoundError(msgCertificateNotIssued, false, nil)
	}

	key, err := storage.ObjectKeyFromURL(*enrollment.CertificateURL)
	if err != nil {
		return "", errors.Wrapf(err, "certificate for course %s", courseID)
	}

	var url string
	err = upstream(ctx, s.timeout, "sign certificate", func(ctx context.Context) error {
		var err error
		url, err = s.signer.IssueSignedURL(ctx, s.bucket, key)
		return err
	})
	if err != nil {
		return "", err
	}

	return url, nil
}
