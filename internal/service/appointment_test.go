package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/careportal/internal/access"
	"github.com/deppfellow/careportal/internal/errs"
	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/sqlerr"
)

const testApptID = "7b0c8f4e-0d7e-4a53-9a53-3c9a2f1d9b10"

func strPtr(s string) *string { return &s }

func requireHTTPError(t *testing.T, err error, status int, message string) {
	t.Helper()

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected *errs.HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, httpErr.Status)
	if message != "" {
		assert.Equal(t, message, httpErr.Message)
	}
}

func newAppointmentService(store AppointmentStore, signer ObjectSigner, timeout time.Duration) *AppointmentService {
	return NewAppointmentService(AppointmentServiceDeps{
		Appointments: store,
		Signer:       signer,
		Policy:       access.NewPolicy("admin"),
		Bucket:       "appointment-sheets",
		Timeout:      timeout,
	})
}

func appointmentWithSheet(sheet *string) *mockAppointmentStore {
	return &mockAppointmentStore{GetAppointmentFunc: func(_ context.Context, id string) (*model.Appointment, error) {
		return &model.Appointment{
			ID:                  id,
			PatientID:           "patient_1",
			DoctorUserID:        "doctor_user_1",
			AppointmentSheetURL: sheet,
		}, nil
	}}
}

func TestAppointmentService_GetAppointmentSheetURL_Permitted(t *testing.T) {
	callers := map[string]access.RequestContext{
		"patient": {UserID: "patient_1", Role: "org:member"},
		"doctor":  {UserID: "doctor_user_1"},
		"admin":   {UserID: "someone_else", Role: "admin"},
	}

	for name, rc := range callers {
		t.Run(name, func(t *testing.T) {
			signer := &mockSigner{}
			svc := newAppointmentService(appointmentWithSheet(strPtr("https://x/sheets/sheet-42.pdf?download=1")), signer, time.Second)

			url, err := svc.GetAppointmentSheetURL(context.Background(), rc, testApptID)

			require.NoError(t, err)
			assert.Equal(t, "https://signed.example.com/appointment-sheets/sheet-42.pdf?sig=1", url)
			require.Len(t, signer.Calls, 1)
			assert.Equal(t, signCall{Bucket: "appointment-sheets", Key: "sheet-42.pdf"}, signer.Calls[0])
		})
	}
}

func TestAppointmentService_GetAppointmentSheetURL_NotFound(t *testing.T) {
	store := &mockAppointmentStore{GetAppointmentFunc: func(context.Context, string) (*model.Appointment, error) {
		return nil, pgx.ErrNoRows
	}}
	signer := &mockSigner{}

	_, err := newAppointmentService(store, signer, time.Second).
		GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

	requireHTTPError(t, err, http.StatusNotFound, "Appointment not found")
	assert.Empty(t, signer.Calls)
}

func TestAppointmentService_GetAppointmentSheetURL_Denied(t *testing.T) {
	signer := &mockSigner{}
	svc := newAppointmentService(appointmentWithSheet(strPtr("https://x/sheet.pdf")), signer, time.Second)

	_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "intruder", Role: "org:member"}, testApptID)

	requireHTTPError(t, err, http.StatusForbidden, "Access denied")
	assert.Empty(t, signer.Calls)
}

func TestAppointmentService_GetAppointmentSheetURL_DeniedBeforeSheetCheck(t *testing.T) {
	svc := newAppointmentService(appointmentWithSheet(nil), &mockSigner{}, time.Second)

	_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "intruder"}, testApptID)

	requireHTTPError(t, err, http.StatusForbidden, "Access denied")
}

func TestAppointmentService_GetAppointmentSheetURL_MissingSheet(t *testing.T) {
	for name, sheet := range map[string]*string{"null": nil, "empty": strPtr("")} {
		t.Run(name, func(t *testing.T) {
			signer := &mockSigner{}
			svc := newAppointmentService(appointmentWithSheet(sheet), signer, time.Second)

			_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

			requireHTTPError(t, err, http.StatusNotFound, "Appointment sheet not available")
			assert.NotEqual(t, "Appointment not found", err.Error())
			assert.Empty(t, signer.Calls)
		})
	}
}

func TestAppointmentService_GetAppointmentSheetURL_SignerFailure(t *testing.T) {
	signer := &mockSigner{IssueSignedURLFunc: func(context.Context, string, string) (string, error) {
		return "", errors.New("storage: bucket not found")
	}}
	svc := newAppointmentService(appointmentWithSheet(strPtr("https://x/sheet.pdf")), signer, time.Second)

	_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

	require.Error(t, err)
	var httpErr *errs.HTTPError
	assert.False(t, errors.As(err, &httpErr))
	requireHTTPError(t, sqlerr.HandleError(err), http.StatusInternalServerError, "Internal Server Error")
	assert.Len(t, signer.Calls, 1)
}

func TestAppointmentService_GetAppointmentSheetURL_StoreFailure(t *testing.T) {
	store := &mockAppointmentStore{GetAppointmentFunc: func(context.Context, string) (*model.Appointment, error) {
		return nil, errors.New("connection refused")
	}}

	_, err := newAppointmentService(store, &mockSigner{}, time.Second).
		GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "get appointment")
	requireHTTPError(t, sqlerr.HandleError(err), http.StatusInternalServerError, "")
}

func TestAppointmentService_GetAppointmentSheetURL_MalformedReference(t *testing.T) {
	signer := &mockSigner{}
	svc := newAppointmentService(appointmentWithSheet(strPtr("https://x/sheets/")), signer, time.Second)

	_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

	require.Error(t, err)
	requireHTTPError(t, sqlerr.HandleError(err), http.StatusInternalServerError, "")
	assert.Empty(t, signer.Calls)
}

func TestAppointmentService_GetAppointmentSheetURL_Timeouts(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		store := &mockAppointmentStore{GetAppointmentFunc: func(ctx context.Context, _ string) (*model.Appointment, error) {
			return nil, blockUntilDone(ctx)
		}}

		_, err := newAppointmentService(store, &mockSigner{}, 20*time.Millisecond).
			GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

		requireHTTPError(t, err, http.StatusGatewayTimeout, "Upstream request timed out")
	})

	t.Run("signer", func(t *testing.T) {
		signer := &mockSigner{IssueSignedURLFunc: func(ctx context.Context, _, _ string) (string, error) {
			return "", blockUntilDone(ctx)
		}}
		svc := newAppointmentService(appointmentWithSheet(strPtr("https://x/sheet.pdf")), signer, 20*time.Millisecond)

		_, err := svc.GetAppointmentSheetURL(context.Background(), access.RequestContext{UserID: "patient_1"}, testApptID)

		requireHTTPError(t, err, http.StatusGatewayTimeout, "")
		var httpErr *errs.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, errs.CodeUpstreamTimeout, httpErr.Code)
	})
}
