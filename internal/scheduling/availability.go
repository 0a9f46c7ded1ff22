package scheduling

import (
	"context"
	"sort"

	"hospital-app-server/internal/logger"
	"hospital-app-server/internal/models"
)

// WindowInput describes a window to add or the new shape of an existing one.
type WindowInput struct {
	Weekday      models.Weekday
	Start        models.TimeOfDay
	End          models.TimeOfDay
	SlotDuration int
	Active       bool
}

// AvailabilityManager maintains doctors' weekly availability windows.
type AvailabilityManager struct {
	store   Store
	log     *logger.Logger
	metrics *Metrics
}

func NewAvailabilityManager(store Store, log *logger.Logger, metrics *Metrics) *AvailabilityManager {
	return &AvailabilityManager{store: store, log: log, metrics: metrics}
}

// AddWindow creates a window owned by actor. Windows of the same doctor and
// weekday may not overlap, whether or not they are active.
func (m *AvailabilityManager) AddWindow(ctx context.Context, actor Actor, in WindowInput) (*models.AvailabilityWindow, error) {
	if err := Authorize(actor, CapManageAvailability, Subject{DoctorID: actor.ID}); err != nil {
		return nil, err
	}
	if err := normalizeWindow(&in); err != nil {
		return nil, err
	}

	window := &models.AvailabilityWindow{
		DoctorID:     actor.ID,
		Weekday:      in.Weekday,
		Start:        in.Start,
		End:          in.End,
		SlotDuration: in.SlotDuration,
		Active:       in.Active,
	}

	err := m.store.InTx(ctx, func(tx Store) error {
		if err := checkOverlap(ctx, tx, window); err != nil {
			return err
		}
		return tx.CreateWindow(ctx, window)
	})
	if err != nil {
		m.audit(actor, "availability.add", "", false, map[string]interface{}{"weekday": int(in.Weekday), "error": err.Error()})
		return nil, err
	}

	m.metrics.windowChanged("add")
	m.audit(actor, "availability.add", window.ID, true, map[string]interface{}{
		"weekday": int(window.Weekday),
		"start":   window.Start.String(),
		"end":     window.End.String(),
	})
	return window, nil
}

// UpdateWindow reshapes an existing window. The overlap rule is applied
// against the doctor's other windows.
func (m *AvailabilityManager) UpdateWindow(ctx context.Context, actor Actor, windowID string, in WindowInput) (*models.AvailabilityWindow, error) {
	var window *models.AvailabilityWindow
	err := m.store.InTx(ctx, func(tx Store) error {
		current, err := tx.GetWindow(ctx, windowID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, CapManageAvailability, Subject{DoctorID: current.DoctorID}); err != nil {
			return err
		}
		if err := normalizeWindow(&in); err != nil {
			return err
		}

		current.Weekday = in.Weekday
		current.Start = in.Start
		current.End = in.End
		current.SlotDuration = in.SlotDuration
		current.Active = in.Active

		if err := checkOverlap(ctx, tx, current); err != nil {
			return err
		}
		if err := tx.UpdateWindow(ctx, current); err != nil {
			return err
		}
		window = current
		return nil
	})
	if err != nil {
		m.audit(actor, "availability.update", windowID, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	m.metrics.windowChanged("update")
	m.audit(actor, "availability.update", windowID, true, map[string]interface{}{
		"weekday": int(window.Weekday),
		"start":   window.Start.String(),
		"end":     window.End.String(),
	})
	return window, nil
}

// SetActive toggles whether the window is offered to the booking flow.
func (m *AvailabilityManager) SetActive(ctx context.Context, actor Actor, windowID string, active bool) (*models.AvailabilityWindow, error) {
	var window *models.AvailabilityWindow
	err := m.store.InTx(ctx, func(tx Store) error {
		current, err := tx.GetWindow(ctx, windowID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, CapManageAvailability, Subject{DoctorID: current.DoctorID}); err != nil {
			return err
		}
		current.Active = active
		if err := tx.UpdateWindow(ctx, current); err != nil {
			return err
		}
		window = current
		return nil
	})
	if err != nil {
		m.audit(actor, "availability.set_active", windowID, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	m.metrics.windowChanged("set_active")
	m.audit(actor, "availability.set_active", windowID, true, map[string]interface{}{"active": active})
	return window, nil
}

// DeleteWindow removes a window for good.
func (m *AvailabilityManager) DeleteWindow(ctx context.Context, actor Actor, windowID string) error {
	err := m.store.InTx(ctx, func(tx Store) error {
		current, err := tx.GetWindow(ctx, windowID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, CapManageAvailability, Subject{DoctorID: current.DoctorID}); err != nil {
			return err
		}
		return tx.DeleteWindow(ctx, windowID)
	})
	if err != nil {
		m.audit(actor, "availability.delete", windowID, false, map[string]interface{}{"error": err.Error()})
		return err
	}

	m.metrics.windowChanged("delete")
	m.audit(actor, "availability.delete", windowID, true, nil)
	return nil
}

// ListWindows returns a doctor's windows ordered by weekday, then start time.
func (m *AvailabilityManager) ListWindows(ctx context.Context, actor Actor, doctorID string) ([]models.AvailabilityWindow, error) {
	if err := Authorize(actor, CapViewAvailability, Subject{DoctorID: doctorID}); err != nil {
		return nil, err
	}
	windows, err := m.store.ListWindows(ctx, doctorID, nil)
	if err != nil {
		return nil, err
	}
	sortWindows(windows)
	return windows, nil
}

// Covers reports whether an active window for weekday fits a full slot
// starting at at.
func Covers(windows []models.AvailabilityWindow, weekday models.Weekday, at models.TimeOfDay) bool {
	for i := range windows {
		w := &windows[i]
		if w.Active && w.Weekday == weekday && w.Fits(at) {
			return true
		}
	}
	return false
}

func normalizeWindow(in *WindowInput) error {
	if !in.Weekday.Valid() {
		return validation("weekday must be between 1 (Monday) and 7 (Sunday), got %d", int(in.Weekday))
	}
	if !in.Start.Valid() || !in.End.Valid() {
		return validation("window times must be within the day")
	}
	if in.Start >= in.End {
		return validation("start time %s must be before end time %s", in.Start, in.End)
	}
	if in.SlotDuration == 0 {
		in.SlotDuration = models.DefaultSlotDuration
	}
	if in.SlotDuration < 0 {
		return validation("slot duration must be positive, got %d", in.SlotDuration)
	}
	return nil
}

// checkOverlap rejects w if it intersects another window of the same doctor
// and weekday.
func checkOverlap(ctx context.Context, tx Store, w *models.AvailabilityWindow) error {
	weekday := w.Weekday
	existing, err := tx.ListWindows(ctx, w.DoctorID, &weekday)
	if err != nil {
		return err
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == w.ID && w.ID != "" {
			continue
		}
		if other.Weekday == w.Weekday && other.Overlaps(w.Start, w.End) {
			return conflict("window %s-%s overlaps existing window %s-%s on %s",
				w.Start, w.End, other.Start, other.End, w.Weekday)
		}
	}
	return nil
}

func sortWindows(windows []models.AvailabilityWindow) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Weekday != windows[j].Weekday {
			return windows[i].Weekday < windows[j].Weekday
		}
		return windows[i].Start < windows[j].Start
	})
}

func (m *AvailabilityManager) audit(actor Actor, action, windowID string, success bool, details map[string]interface{}) {
	m.log.Audit(actor.ID, action, "availability_window:"+windowID, success, details)
}
