package scheduling

import (
	"context"
	"sort"

	"hospital-app-server/internal/models"
)

// Slot is a bookable start time on a given date.
type Slot struct {
	Date     models.Date      `json:"date"`
	Time     models.TimeOfDay `json:"time"`
	Duration int              `json:"duration"`
}

// AvailableSlots expands the doctor's active windows for date into slots
// and drops the ones already held by pending or confirmed appointments.
// Past dates and, for today, past times yield nothing.
func (s *Service) AvailableSlots(ctx context.Context, actor Actor, doctorID string, date models.Date) ([]Slot, error) {
	if err := Authorize(actor, CapViewAvailability, Subject{DoctorID: doctorID}); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, validation("date is required")
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slots := []Slot{}
	today := s.today()
	if date.Before(today) {
		return slots, nil
	}
	earliest := models.TimeOfDay(0)
	if date == today {
		now := s.opts.Now().In(s.opts.Location)
		earliest = models.NewTimeOfDay(now.Hour(), now.Minute())
	}

	weekday := date.Weekday()
	windows, err := s.store.ListWindows(ctx, doctorID, &weekday)
	if err != nil {
		return nil, err
	}
	appts, err := s.store.ListAppointments(ctx, AppointmentFilter{
		DoctorID: doctorID,
		Statuses: models.ActiveStatuses,
		From:     date,
		To:       date,
	})
	if err != nil {
		return nil, err
	}

	held := make(map[models.TimeOfDay]struct{}, len(appts))
	for _, a := range appts {
		held[a.Time] = struct{}{}
	}

	seen := make(map[models.TimeOfDay]struct{})
	for i := range windows {
		w := &windows[i]
		if !w.Active || w.Weekday != weekday || w.SlotDuration <= 0 {
			continue
		}
		for t := w.Start; w.Fits(t); t = t.Add(w.SlotDuration) {
			if t < earliest {
				continue
			}
			if _, ok := held[t]; ok {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			slots = append(slots, Slot{Date: date, Time: t, Duration: w.SlotDuration})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots, nil
}
