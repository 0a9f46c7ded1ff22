package scheduling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hospital-app-server/internal/models"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		role models.Role
		from models.AppointmentStatus
		to   models.AppointmentStatus
		want error
	}{
		{models.RoleDoctor, models.StatusPending, models.StatusConfirmed, nil},
		{models.RoleDoctor, models.StatusPending, models.StatusCancelled, nil},
		{models.RoleDoctor, models.StatusPending, models.StatusCompleted, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusPending, models.StatusPending, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusConfirmed, models.StatusCompleted, nil},
		{models.RoleDoctor, models.StatusConfirmed, models.StatusCancelled, nil},
		{models.RoleDoctor, models.StatusConfirmed, models.StatusPending, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusCompleted, models.StatusCancelled, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusCompleted, models.StatusCompleted, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusCancelled, models.StatusConfirmed, ErrInvalidTransition},
		{models.RoleDoctor, models.StatusCancelled, models.StatusCancelled, ErrInvalidTransition},

		{models.RolePatient, models.StatusPending, models.StatusCancelled, nil},
		{models.RolePatient, models.StatusConfirmed, models.StatusCancelled, nil},
		{models.RolePatient, models.StatusPending, models.StatusConfirmed, ErrPermission},
		{models.RolePatient, models.StatusConfirmed, models.StatusCompleted, ErrPermission},
		{models.RolePatient, models.StatusCompleted, models.StatusCancelled, ErrInvalidTransition},
		{models.RolePatient, models.StatusCancelled, models.StatusCancelled, ErrInvalidTransition},

		{models.RoleNurse, models.StatusPending, models.StatusConfirmed, ErrInvalidTransition},
		{models.RoleNurse, models.StatusConfirmed, models.StatusCancelled, ErrInvalidTransition},

		{models.RoleDoctor, models.StatusPending, models.AppointmentStatus("rescheduled"), ErrValidation},
	}

	for _, tt := range tests {
		name := string(tt.role) + ":" + string(tt.from) + "->" + string(tt.to)
		t.Run(name, func(t *testing.T) {
			err := Transition(tt.role, tt.from, tt.to)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTransition_CancelCompletedMessage(t *testing.T) {
	err := Transition(models.RoleDoctor, models.StatusCompleted, models.StatusCancelled)
	assert.Equal(t, "cannot cancel a completed appointment", MessageOf(err))
}

func TestAllowedTargets_TerminalStatesAreClosed(t *testing.T) {
	for _, role := range []models.Role{models.RoleDoctor, models.RoleNurse, models.RolePatient} {
		assert.Empty(t, AllowedTargets(role, models.StatusCompleted))
		assert.Empty(t, AllowedTargets(role, models.StatusCancelled))
	}
}

func TestAllowedTargets_NeverReturnsPending(t *testing.T) {
	for _, role := range []models.Role{models.RoleDoctor, models.RoleNurse, models.RolePatient} {
		for _, from := range models.AllStatuses {
			assert.NotContains(t, AllowedTargets(role, from), models.StatusPending)
		}
	}
}
