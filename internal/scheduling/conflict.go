package scheduling

import (
	"context"

	"hospital-app-server/internal/models"
)

// SlotReader is the part of Store the conflict check needs.
type SlotReader interface {
	ActiveAppointmentsAt(ctx context.Context, doctorID string, date models.Date, at models.TimeOfDay) ([]models.Appointment, error)
}

// HasConflict reports whether the slot already holds a pending or confirmed
// appointment. Run it inside Store.InTx so the rows it reads stay locked
// until the insert commits.
func HasConflict(ctx context.Context, r SlotReader, doctorID string, date models.Date, at models.TimeOfDay) (bool, error) {
	held, err := r.ActiveAppointmentsAt(ctx, doctorID, date, at)
	if err != nil {
		return false, err
	}
	return len(held) > 0, nil
}
