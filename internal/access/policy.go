// Package access decides whether a requester may read a resource.
package access

import "github.com/deppfellow/careportal/internal/model"

// RequestContext is the authenticated caller, resolved once per request
// by the auth middleware and passed down by value.
type RequestContext struct {
	UserID string
	Role   string
}

type Decision int

const (
	Deny Decision = iota
	Permit
)

func (d Decision) String() string {
	if d == Permit {
		return "permit"
	}
	return "deny"
}

// Policy holds the role name that grants access beyond ownership.
type Policy struct {
	AdminRole string
}

func NewPolicy(adminRole string) Policy {
	return Policy{AdminRole: adminRole}
}

// IsAdmin never matches an empty role, so a missing role claim cannot
// satisfy an unset AdminRole.
func (p Policy) IsAdmin(rc RequestContext) bool {
	return rc.Role != "" && rc.Role == p.AdminRole
}

// AppointmentSheet permits the patient, the assigned doctor's user and
// admins. Empty ids on either side never match.
func (p Policy) AppointmentSheet(rc RequestContext, appt *model.Appointment) Decision {
	if appt == nil {
		return Deny
	}

	switch {
	case rc.UserID != "" && rc.UserID == appt.PatientID:
		return Permit
	case rc.UserID != "" && rc.UserID == appt.DoctorUserID:
		return Permit
	case p.IsAdmin(rc):
		return Permit
	default:
		return Deny
	}
}
