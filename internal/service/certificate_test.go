package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/errs"
	"github.com/deppfellow/careportal/internal/lib/job"
	"github.com/deppfellow/careportal/internal/sqlerr"
)

var issuer = access.RequestContext{UserID: "staff_1", Role: "admin"}

type certificateFixture struct {
	store    *memStore
	signer   *mockSigner
	notifier *mockNotifier
	svc      *CertificateService
}

func newCertificateFixture(timeout time.Duration) *certificateFixture {
	f := &certificateFixture{
		store:    newMemStore(),
		signer:   &mockSigner{},
		notifier: &mockNotifier{},
	}
	f.svc = NewCertificateService(CertificateServiceDeps{
		Enrollments:   f.store,
		Notifications: f.store,
		Signer:        f.signer,
		Policy:        access.NewPolicy("admin"),
		Notifier:      f.notifier,
		Bucket:        "certificates",
		Timeout:       timeout,
	})
	return f
}

func TestCertificateService_Issue_EndToEnd(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.addCourse("C", "Basic Life Support")
	f.store.enroll("U", "C", 40, nil)

	res, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{
		UserID:         "U",
		CourseID:       "C",
		CertificateURL: "https://x/cert123.pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, &IssueCertificateResult{OK: true}, res)

	enrollment := f.store.enrollment("U", "C")
	require.NotNil(t, enrollment)
	require.NotNil(t, enrollment.CertificateURL)
	assert.Equal(t, "https://x/cert123.pdf", *enrollment.CertificateURL)
	assert.Equal(t, 100, enrollment.Progress)

	notifications := f.store.notificationsFor("U")
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "Basic Life Support")

	assert.Equal(t, []job.CertificateIssuedPayload{{UserID: "U", CourseID: "C", CourseTitle: "Basic Life Support"}}, f.notifier.Payloads)
}

func TestCertificateService_Issue_MissingFields(t *testing.T) {
	full := IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/cert123.pdf"}

	tests := []struct {
		name  string
		input func(IssueCertificateInput) IssueCertificateInput
		field string
	}{
		{name: "user", input: func(in IssueCertificateInput) IssueCertificateInput { in.UserID = ""; return in }, field: "userid"},
		{name: "course", input: func(in IssueCertificateInput) IssueCertificateInput { in.CourseID = ""; return in }, field: "courseid"},
		{name: "certificate url", input: func(in IssueCertificateInput) IssueCertificateInput { in.CertificateURL = "  "; return in }, field: "certificateurl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCertificateFixture(time.Second)
			f.store.enroll("U", "C", 40, nil)

			_, err := f.svc.Issue(context.Background(), issuer, tt.input(full))

			requireHTTPError(t, err, http.StatusBadRequest, "")
			var httpErr *errs.HTTPError
			require.True(t, errors.As(err, &httpErr))
			require.Len(t, httpErr.Errors, 1)
			assert.Equal(t, tt.field, httpErr.Errors[0].Field)

			enrollment := f.store.enrollment("U", "C")
			assert.Nil(t, enrollment.CertificateURL)
			assert.Equal(t, 40, enrollment.Progress)
			assert.Empty(t, f.store.notificationsFor("U"))
			assert.Zero(t, f.store.writes)
			assert.Empty(t, f.notifier.Payloads)
		})
	}
}

func TestCertificateService_Issue_NoEnrollment(t *testing.T) {
	f := newCertificateFixture(time.Second)

	_, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/c.pdf"})

	requireHTTPError(t, err, http.StatusNotFound, "Enrollment not found")
	assert.Empty(t, f.store.notificationsFor("U"))
	assert.Empty(t, f.notifier.Payloads)
}

func TestCertificateService_Issue_NotificationFailureKeepsCertificate(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("U", "C", 90, nil)
	f.store.NotificationErr = errors.New("notifications table locked")

	res, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/cert123.pdf"})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, WarningNotificationFailed, res.Warning)

	enrollment := f.store.enrollment("U", "C")
	require.NotNil(t, enrollment.CertificateURL)
	assert.Equal(t, 100, enrollment.Progress)
	assert.Empty(t, f.store.notificationsFor("U"))
	// The email is still attempted.
	assert.Len(t, f.notifier.Payloads, 1)
}

func TestCertificateService_Issue_EnqueueFailureIsIgnored(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("U", "C", 90, nil)
	f.notifier.EnqueueFunc = func(context.Context, job.CertificateIssuedPayload) error {
		return errors.New("redis down")
	}

	res, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/cert123.pdf"})

	require.NoError(t, err)
	assert.Equal(t, &IssueCertificateResult{OK: true}, res)
	assert.Len(t, f.store.notificationsFor("U"), 1)
}

func TestCertificateService_Issue_EnqueueIsBounded(t *testing.T) {
	f := newCertificateFixture(20 * time.Millisecond)
	f.store.enroll("U", "C", 90, nil)
	var enqueueErr error
	f.notifier.EnqueueFunc = func(ctx context.Context, _ job.CertificateIssuedPayload) error {
		enqueueErr = blockUntilDone(ctx)
		return enqueueErr
	}

	start := time.Now()
	res, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/cert123.pdf"})

	require.NoError(t, err)
	assert.Equal(t, &IssueCertificateResult{OK: true}, res)
	assert.ErrorIs(t, enqueueErr, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCertificateService_Issue_RequiresAdmin(t *testing.T) {
	tests := []struct {
		name       string
		rc         access.RequestContext
		wantStatus int
	}{
		{name: "anonymous", rc: access.RequestContext{}, wantStatus: http.StatusUnauthorized},
		{name: "no role", rc: access.RequestContext{UserID: "U"}, wantStatus: http.StatusForbidden},
		{name: "member role", rc: access.RequestContext{UserID: "U", Role: "member"}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCertificateFixture(time.Second)
			f.store.enroll("U", "C", 90, nil)

			_, err := f.svc.Issue(context.Background(), tt.rc, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/other-users-file.pdf"})

			requireHTTPError(t, err, tt.wantStatus, "")
			assert.Zero(t, f.store.writes)
			assert.Empty(t, f.store.notificationsFor("U"))
			assert.Empty(t, f.notifier.Payloads)
		})
	}
}

func TestCertificateService_Issue_WithoutNotifier(t *testing.T) {
	store := newMemStore()
	store.enroll("U", "C", 0, nil)
	svc := NewCertificateService(CertificateServiceDeps{
		Enrollments:   store,
		Notifications: store,
		Signer:        &mockSigner{},
		Policy:        access.NewPolicy("admin"),
	})

	res, err := svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/c.pdf"})

	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestCertificateService_Issue_MutationFailure(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("U", "C", 90, nil)
	f.store.MarkErr = errors.New("connection reset")

	_, err := f.svc.Issue(context.Background(), issuer, IssueCertificateInput{UserID: "U", CourseID: "C", CertificateURL: "https://x/c.pdf"})

	require.Error(t, err)
	requireHTTPError(t, sqlerr.HandleError(err), http.StatusInternalServerError, "")
	assert.Empty(t, f.store.notificationsFor("U"))
	assert.Empty(t, f.notifier.Payloads)
}

func TestCertificateService_ListMine(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.addCourse("bls", "Basic Life Support")
	f.store.enroll("U", "bls", 100, strPtr("https://x/bls.pdf"))
	f.store.enroll("U", "acls", 50, nil)
	f.store.enroll("V", "bls", 100, strPtr("https://x/other.pdf"))

	certs, err := f.svc.ListMine(context.Background(), access.RequestContext{UserID: "U"})

	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "bls", certs[0].CourseID)
	assert.Equal(t, "Basic Life Support", certs[0].CourseTitle)
	assert.Equal(t, "https://x/bls.pdf", certs[0].CertificateURL)

	empty, err := f.svc.ListMine(context.Background(), access.RequestContext{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.svc.ListMine(context.Background(), access.RequestContext{})
	requireHTTPError(t, err, http.StatusUnauthorized, "")
}

func TestCertificateService_DownloadURL(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("U", "C", 100, strPtr("https://x/certs/cert123.pdf"))
	f.store.enroll("U", "pending", 60, nil)

	url, err := f.svc.DownloadURL(context.Background(), access.RequestContext{UserID: "U"}, "C")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/certificates/cert123.pdf?sig=1", url)
	assert.Equal(t, []signCall{{Bucket: "certificates", Key: "cert123.pdf"}}, f.signer.Calls)

	_, err = f.svc.DownloadURL(context.Background(), access.RequestContext{UserID: "U"}, "pending")
	requireHTTPError(t, err, http.StatusNotFound, "Certificate not issued")

	_, err = f.svc.DownloadURL(context.Background(), access.RequestContext{UserID: "U"}, "unknown")
	requireHTTPError(t, err, http.StatusNotFound, "Certificate not found")
}

func TestCertificateService_DownloadURL_ScopedToRequester(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("owner", "C", 100, strPtr("https://x/cert123.pdf"))

	for _, rc := range []access.RequestContext{
		{UserID: "other"},
		{UserID: "other", Role: "admin"},
		{UserID: "other", Role: "org:admin"},
	} {
		_, err := f.svc.DownloadURL(context.Background(), rc, "C")
		requireHTTPError(t, err, http.StatusNotFound, "Certificate not found")
	}
	assert.Empty(t, f.signer.Calls)

	_, err := f.svc.DownloadURL(context.Background(), access.RequestContext{}, "C")
	requireHTTPError(t, err, http.StatusUnauthorized, "")
}

func TestCertificateService_DownloadURL_SignerFailure(t *testing.T) {
	f := newCertificateFixture(time.Second)
	f.store.enroll("U", "C", 100, strPtr("https://x/cert123.pdf"))
	f.signer.IssueSignedURLFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("access key revoked")
	}

	_, err := f.svc.DownloadURL(context.Background(), access.RequestContext{UserID: "U"}, "C")

	require.Error(t, err)
	requireHTTPError(t, sqlerr.HandleError(err), http.StatusInternalServerError, "Internal Server Error")
	assert.Zero(t, f.store.writes)
}

func TestCertificateService_DownloadURL_Timeout(t *testing.T) {
	f := newCertificateFixture(20 * time.Millisecond)
	f.store.GetHook = blockUntilDone

	_, err := f.svc.DownloadURL(context.Background(), access.RequestContext{UserID: "U"}, "C")

	requireHTTPError(t, err, http.StatusGatewayTimeout, "Upstream request timed out")
}
