package scheduling

import "hospital-app-server/internal/models"

// Actor is the authenticated identity invoking an operation.
type Actor struct {
	ID   string
	Role models.Role
}

// Capability is something an actor may do to an appointment or a window.
type Capability string

const (
	CapRead               Capability = "read"
	CapTransition         Capability = "transition"
	CapAnnotate           Capability = "annotate"
	CapBook               Capability = "book"
	CapManageAvailability Capability = "manage availability"
	CapViewAvailability   Capability = "view availability"
)

// Subject describes who an entity belongs to.
type Subject struct {
	// DoctorID is the assigned doctor of an appointment or the owner of a window.
	DoctorID string
	// PatientUserID is the user id behind the appointment's patient record.
	// Empty when the patient has no account.
	PatientUserID string
}

// Authorize is the only place role checks happen. It returns nil when actor
// may exercise capability on subject, and a permission error otherwise.
func Authorize(actor Actor, capability Capability, subject Subject) error {
	if actor.ID == "" {
		return permissionDenied("unauthenticated actor")
	}

	allowed := false
	switch actor.Role {
	case models.RoleDoctor:
		assigned := subject.DoctorID == actor.ID
		switch capability {
		case CapRead, CapTransition, CapAnnotate, CapManageAvailability:
			allowed = assigned
		case CapViewAvailability:
			allowed = true
		case CapBook:
			allowed = false
		}
	case models.RoleNurse:
		switch capability {
		case CapRead, CapViewAvailability:
			allowed = true
		case CapTransition, CapAnnotate, CapBook, CapManageAvailability:
			allowed = false
		}
	case models.RolePatient:
		owner := subject.PatientUserID != "" && subject.PatientUserID == actor.ID
		switch capability {
		case CapRead, CapTransition, CapBook:
			allowed = owner
		case CapViewAvailability:
			allowed = true
		case CapAnnotate, CapManageAvailability:
			allowed = false
		}
	}

	if !allowed {
		return permissionDenied("%s may not %s here", roleLabel(actor.Role), capability)
	}
	return nil
}

func roleLabel(r models.Role) string {
	if r == "" {
		return "unknown role"
	}
	return string(r)
}
