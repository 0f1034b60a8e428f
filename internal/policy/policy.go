// Package policy implements pure access-control decisions for the triage
// platform. Functions here only decide; callers enforce the decision by
// refusing the operation. Existence of the target resource must be confirmed
// before evaluating policy.
package policy

import (
	"github.com/fast-aid/triage-platform/internal/model"
)

// Principal is the authenticated identity making a request.
type Principal struct {
	ID   string
	Role model.Role
}

// CanAccessConversation decides general read/write access to a conversation
// and its messages and prediagnoses. Patients access only conversations they
// own; doctors only conversations they are assigned to; admins have no
// general access and are limited to the dedicated assignment operation.
func CanAccessConversation(p Principal, conv *model.Conversation) bool {
	switch p.Role {
	case model.RolePatient:
		return conv.PatientID == p.ID
	case model.RoleDoctor:
		return conv.DoctorID != nil && *conv.DoctorID == p.ID
	case model.RoleAdmin:
		return false
	default:
		return false
	}
}

// CanAssignDoctor decides access to the assign/remove-doctor operation:
// allowed for the owning patient and for admins regardless of ownership.
func CanAssignDoctor(p Principal, conv *model.Conversation) bool {
	switch p.Role {
	case model.RolePatient:
		return conv.PatientID == p.ID
	case model.RoleDoctor:
		return false
	case model.RoleAdmin:
		return true
	default:
		return false
	}
}

// CanReadUser decides read access to a user record. Patients may only read
// their own record; doctors and admins may read any.
func CanReadUser(p Principal, userID string) bool {
	switch p.Role {
	case model.RolePatient:
		return p.ID == userID
	case model.RoleDoctor, model.RoleAdmin:
		return true
	default:
		return false
	}
}

// CanUpdateMedicalHistory decides write access to a patient's medical
// history: the owning patient or an admin.
func CanUpdateMedicalHistory(p Principal, userID string) bool {
	switch p.Role {
	case model.RolePatient:
		return p.ID == userID
	case model.RoleDoctor:
		return false
	case model.RoleAdmin:
		return true
	default:
		return false
	}
}
