// Package model holds the rows read from and written to the relational store.
package model

import "time"

// Appointment is read joined with its doctor so DoctorUserID carries the
// doctor's user id rather than the doctor row id.
type Appointment struct {
	ID                  string  `json:"id" db:"id"`
	PatientID           string  `json:"patientId" db:"patient_id"`
	DoctorUserID        string  `json:"doctorUserId" db:"doctor_user_id"`
	AppointmentSheetURL *string `json:"appointmentSheetUrl,omitempty" db:"appointment_sheet_url"`
}

// Enrollment links a user to a course. CertificateURL stays nil until a
// certificate is issued.
type Enrollment struct {
	UserID         string     `json:"userId" db:"user_id"`
	CourseID       string     `json:"courseId" db:"course_id"`
	Progress       int        `json:"progress" db:"progress"`
	CertificateURL *string    `json:"certificateUrl,omitempty" db:"certificate_url"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

type Notification struct {
	UserID  string `json:"userId" db:"user_id"`
	Message string `json:"message" db:"message"`
}

// CertificateSummary is one entry of the requester's certificate listing.
type CertificateSummary struct {
	CourseID       string    `json:"courseId" db:"course_id"`
	CourseTitle    string    `json:"courseTitle" db:"course_title"`
	Progress       int       `json:"progress" db:"progress"`
	CertificateURL string    `json:"certificateUrl" db:"certificate_url"`
	IssuedAt       time.Time `json:"issuedAt" db:"issued_at"`
}
