package models

import "fmt"

// Weekday numbers days the way horarios_medicos.dia_semana does: Monday is 1,
// Sunday is 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// DefaultSlotDuration is the appointment length, in minutes, when a window
// does not specify one.
const DefaultSlotDuration = 30

// AvailabilityWindow is a doctor's recurring weekly time window.
type AvailabilityWindow struct {
	BaseModel
	DoctorID     string    `gorm:"column:medico_id;size:36;not null;index:idx_horarios_medico_dia,priority:1" json:"doctorId"`
	Weekday      Weekday   `gorm:"column:dia_semana;not null;index:idx_horarios_medico_dia,priority:2" json:"weekday"`
	Start        TimeOfDay `gorm:"column:hora_inicio;not null" json:"start"`
	End          TimeOfDay `gorm:"column:hora_fin;not null" json:"end"`
	SlotDuration int       `gorm:"column:duracion_cita;not null;default:30" json:"slotDuration"`
	Active       bool      `gorm:"column:activo;not null" json:"active"`

	Doctor *User `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName maps AvailabilityWindow onto the horarios_medicos table.
func (AvailabilityWindow) TableName() string {
	return "horarios_medicos"
}

// Overlaps uses half-open intervals, so windows that only touch do not
// overlap.
func (w *AvailabilityWindow) Overlaps(start, end TimeOfDay) bool {
	return w.Start < end && w.End > start
}

// Fits reports whether a full slot starting at t lies inside the window.
func (w *AvailabilityWindow) Fits(t TimeOfDay) bool {
	return t >= w.Start && t.Add(w.SlotDuration) <= w.End
}
