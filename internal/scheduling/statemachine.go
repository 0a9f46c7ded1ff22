package scheduling

import "hospital-app-server/internal/models"

// AllowedTargets returns the statuses role may move an appointment to from
// its current status. Terminal statuses have no targets.
func AllowedTargets(role models.Role, from models.AppointmentStatus) []models.AppointmentStatus {
	switch from {
	case models.StatusPending:
		switch role {
		case models.RoleDoctor:
			return []models.AppointmentStatus{models.StatusConfirmed, models.StatusCancelled}
		case models.RolePatient:
			return []models.AppointmentStatus{models.StatusCancelled}
		case models.RoleNurse:
			return nil
		}
	case models.StatusConfirmed:
		switch role {
		case models.RoleDoctor:
			return []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled}
		case models.RolePatient:
			return []models.AppointmentStatus{models.StatusCancelled}
		case models.RoleNurse:
			return nil
		}
	case models.StatusCompleted, models.StatusCancelled:
		return nil
	}
	return nil
}

// Transition checks that role may move an appointment from one status to
// another. Ownership of the appointment is checked separately by Authorize.
func Transition(role models.Role, from, to models.AppointmentStatus) error {
	if !to.Valid() {
		return validation("unknown appointment status %q", string(to))
	}
	if role == models.RolePatient && to != models.StatusCancelled {
		return permissionDenied("patients may only cancel appointments")
	}
	if from == models.StatusCompleted && to == models.StatusCancelled {
		return invalidTransition("cannot cancel a completed appointment")
	}

	for _, allowed := range AllowedTargets(role, from) {
		if allowed == to {
			return nil
		}
	}

	if from == to && from.Terminal() {
		return invalidTransition("appointment is already %s", from)
	}
	return invalidTransition("cannot move appointment from %s to %s", from, to)
}
