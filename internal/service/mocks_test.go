package service

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/lib/job"
	"github.com/deppfellow/careportal/internal/model"
)

var (
	_ AppointmentStore    = (*mockAppointmentStore)(nil)
	_ ObjectSigner        = (*mockSigner)(nil)
	_ CertificateNotifier = (*mockNotifier)(nil)
	_ EnrollmentStore     = (*memStore)(nil)
	_ NotificationStore   = (*memStore)(nil)
)

type mockAppointmentStore struct {
	GetAppointmentFunc func(ctx context.Context, id string) (*model.Appointment, error)
}

func (m *mockAppointmentStore) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	if m.GetAppointmentFunc != nil {
		return m.GetAppointmentFunc(ctx, id)
	}
	return nil, errors.New("GetAppointmentFunc not implemented in mock")
}

type signCall struct {
	Bucket string
	Key    string
}

type mockSigner struct {
	IssueSignedURLFunc func(ctx context.Context, bucket, objectPath string) (string, error)
	Calls              []signCall
}

func (m *mockSigner) IssueSignedURL(ctx context.Context, bucket, objectPath string) (string, error) {
	m.Calls = append(m.Calls, signCall{Bucket: bucket, Key: objectPath})
	if m.IssueSignedURLFunc != nil {
		return m.IssueSignedURLFunc(ctx, bucket, objectPath)
	}
	return "https://signed.example.com/" + bucket + "/" + objectPath + "?sig=1", nil
}

type mockNotifier struct {
	EnqueueFunc func(ctx context.Context, p job.CertificateIssuedPayload) error
	Payloads    []job.CertificateIssuedPayload
}

func (m *mockNotifier) EnqueueCertificateIssued(ctx context.Context, p job.CertificateIssuedPayload) error {
	m.Payloads = append(m.Payloads, p)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, p)
	}
	return nil
}

// memStore is an in-memory enrollment and notification store with
// per-method failure hooks.
type memStore struct {
	mu            sync.Mutex
	courses       map[string]string
	enrollments   map[[2]string]*model.Enrollment
	notifications []model.Notification
	writes        int

	MarkErr         error
	NotificationErr error
	GetHook         func(ctx context.Context) error
}

func newMemStore() *memStore {
	return &memStore{
		courses:     map[string]string{},
		enrollments: map[[2]string]*model.Enrollment{},
	}
}

func (m *memStore) addCourse(id, title string) {
	m.courses[id] = title
}

func (m *memStore) enroll(userID, courseID string, progress int, certificateURL *string) {
	m.enrollments[[2]string{userID, courseID}] = &model.Enrollment{
		UserID:         userID,
		CourseID:       courseID,
		Progress:       progress,
		CertificateURL: certificateURL,
	}
}

func (m *memStore) enrollment(userID, courseID string) *model.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[[2]string{userID, courseID}]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (m *memStore) GetEnrollmentForUser(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	if m.GetHook != nil {
		if err := m.GetHook(ctx); err != nil {
			return nil, err
		}
	}
	if e := m.enrollment(userID, courseID); e != nil {
		return e, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) MarkCertificateIssued(_ context.Context, userID, courseID, certificateURL string) (string, error) {
	if m.MarkErr != nil {
		return "", m.MarkErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.enrollments[[2]string{userID, courseID}]
	if !ok {
		return "", pgx.ErrNoRows
	}
	url := certificateURL
	e.CertificateURL = &url
	e.Progress = 100
	m.writes++
	return m.courses[courseID], nil
}

func (m *memStore) ListCertificates(_ context.Context, userID string) ([]model.CertificateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.CertificateSummary
	for key, e := range m.enrollments {
		if key[0] != userID || e.CertificateURL == nil {
			continue
		}
		out = append(out, model.CertificateSummary{
			CourseID:       e.CourseID,
			CourseTitle:    m.courses[e.CourseID],
			Progress:       e.Progress,
			CertificateURL: *e.CertificateURL,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *memStore) CreateNotification(_ context.Context, n model.Notification) error {
	if m.NotificationErr != nil {
		return m.NotificationErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	m.writes++
	return nil
}

func (m *memStore) notificationsFor(userID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// blockUntilDone simulates an upstream call that never answers.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
