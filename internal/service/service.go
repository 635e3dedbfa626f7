// Package service contains the business logic.
//
// Services receive validated input from handlers together with the
// caller's access.RequestContext and talk to the store and object
// storage only through the interfaces below, so every collaborator can
// be replaced in tests.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/errs"
	"github.com/deppfellow/careportal/internal/lib/job"
	"github.com/deppfellow/careportal/internal/model"
)

type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
}

type EnrollmentStore interface {
	GetEnrollmentForUser(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	MarkCertificateIssued(ctx context.Context, userID, courseID, certificateURL string) (string, error)
	ListCertificates(ctx context.Context, userID string) ([]model.CertificateSummary, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

type ObjectSigner interface {
	IssueSignedURL(ctx context.Context, bucket, objectPath string) (string, error)
}

type CertificateNotifier interface {
	EnqueueCertificateIssued(ctx context.Context, p job.CertificateIssuedPayload) error
}

func requireIdentity(rc access.RequestContext) error {
	if rc.UserID == "" {
		return errs.NewUnauthorizedError("Unauthorized", false)
	}
	return nil
}

// upstream runs fn under a per-call timeout. A deadline hit becomes a 504;
// any other failure is wrapped with op and left for the global error
// handler to classify.
func upstream(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errs.NewGatewayTimeoutError()
	}

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	return errors.Wrap(err, op)
}
