package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

// stored values of citas.estado
var statusColumn = map[AppointmentStatus]string{
	StatusPending:   "pendiente",
	StatusConfirmed: "confirmada",
	StatusCompleted: "completada",
	StatusCancelled: "cancelada",
}

// ParseStatus accepts both the API spelling and the stored spelling.
func ParseStatus(s string) (AppointmentStatus, error) {
	for status, column := range statusColumn {
		if s == string(status) || s == column {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	_, ok := statusColumn[s]
	return ok
}

// Active reports whether the status holds the slot.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no transition can leave the status.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Value implements driver.Valuer.
func (s AppointmentStatus) Value() (driver.Value, error) {
	v, ok := statusColumn[s]
	if !ok {
		return nil, fmt.Errorf("unknown appointment status %q", string(s))
	}
	return v, nil
}

// Scan implements sql.Scanner.
func (s *AppointmentStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into AppointmentStatus", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Appointment represents a scheduled medical appointment.
//
// SlotLock is 1 while the appointment is active and NULL once it reaches a
// terminal status. Together with the unique index it lets the database reject
// a second active appointment for the same doctor, date and time.
type Appointment struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PatientID string            `gorm:"column:paciente_id;size:36;not null;index" json:"patientId"`
	DoctorID  string            `gorm:"column:medico_id;size:36;not null;uniqueIndex:idx_citas_active_slot,priority:1" json:"doctorId"`
	Date      Date              `gorm:"column:fecha;not null;uniqueIndex:idx_citas_active_slot,priority:2" json:"date"`
	Time      TimeOfDay         `gorm:"column:hora;not null;uniqueIndex:idx_citas_active_slot,priority:3" json:"time"`
	Kind      string            `gorm:"column:tipo_cita;size:100;not null" json:"kind"`
	Reason    string            `gorm:"column:motivo;type:text;not null" json:"reason"`
	Notes     *string           `gorm:"column:notas;type:text" json:"notes"`
	Status    AppointmentStatus `gorm:"column:estado;type:enum('pendiente','confirmada','completada','cancelada');default:'pendiente';not null;index" json:"status"`
	SlotLock  *bool             `gorm:"column:slot_lock;uniqueIndex:idx_citas_active_slot,priority:4" json:"-"`
	CreatedAt time.Time         `gorm:"column:fecha_creacion" json:"createdAt"`
	UpdatedAt time.Time         `gorm:"column:fecha_actualizacion" json:"updatedAt"`

	// Relations (not always preloaded)
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User    `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName maps Appointment onto the citas table.
func (Appointment) TableName() string {
	return "citas"
}

// BeforeCreate sets a UUID and keeps SlotLock consistent with Status.
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	a.SlotLock = SlotLockFor(a.Status)
	return nil
}

// SlotLockFor returns the slot_lock value matching a status.
func SlotLockFor(s AppointmentStatus) *bool {
	if !s.Active() {
		return nil
	}
	held := true
	return &held
}
