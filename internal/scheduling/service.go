package scheduling

import (
	"context"
	"strings"
	"time"

	"hospital-app-server/internal/logger"
	"hospital-app-server/internal/models"
)

// Options tunes the booking rules of a Service.
type Options struct {
	// Location decides what "today" is. Defaults to time.Local.
	Location *time.Location
	// EnforceAvailability requires bookings to fall inside an active window.
	EnforceAvailability bool
	// MaxAdvanceDays limits how far ahead a booking may be. Zero disables it.
	MaxAdvanceDays int
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service orchestrates appointment booking and lifecycle.
type Service struct {
	store   Store
	log     *logger.Logger
	metrics *Metrics
	opts    Options
}

func NewService(store Store, log *logger.Logger, metrics *Metrics, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, log: log, metrics: metrics, opts: opts}
}

// AppointmentRequest is what a patient submits to book a slot.
type AppointmentRequest struct {
	DoctorID string
	Date     models.Date
	Time     models.TimeOfDay
	Kind     string
	Reason   string
	Notes    *string
}

// ListQuery narrows ListAppointments. DoctorID is only honoured for nurses;
// doctors and patients are always scoped to themselves.
type ListQuery struct {
	DoctorID string
	Statuses []models.AppointmentStatus
	From     models.Date
	To       models.Date
}

// StatusSummary counts appointments per status.
type StatusSummary struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// RequestAppointment books a pending appointment for the patient behind
// actor. The conflict check and the insert share one transaction.
func (s *Service) RequestAppointment(ctx context.Context, actor Actor, req AppointmentRequest) (*models.Appointment, error) {
	appt, err := s.requestAppointment(ctx, actor, req)
	s.metrics.appointmentRequested(err)
	if err != nil {
		s.log.Audit(actor.ID, "appointment.request", "doctor:"+req.DoctorID, false, map[string]interface{}{
			"date":  req.Date.String(),
			"time":  req.Time.String(),
			"error": err.Error(),
		})
		return nil, err
	}

	s.log.Audit(actor.ID, "appointment.request", "appointment:"+appt.ID, true, map[string]interface{}{
		"doctor_id": appt.DoctorID,
		"date":      appt.Date.String(),
		"time":      appt.Time.String(),
	})
	return appt, nil
}

func (s *Service) requestAppointment(ctx context.Context, actor Actor, req AppointmentRequest) (*models.Appointment, error) {
	if err := Authorize(actor, CapBook, Subject{PatientUserID: actor.ID}); err != nil {
		return nil, err
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	patient, err := s.store.GetPatientByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		PatientID: patient.ID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Kind:      req.Kind,
		Reason:    req.Reason,
		Notes:     req.Notes,
		Status:    models.StatusPending,
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		if s.opts.EnforceAvailability {
			weekday := req.Date.Weekday()
			windows, err := tx.ListWindows(ctx, req.DoctorID, &weekday)
			if err != nil {
				return err
			}
			if !Covers(windows, weekday, req.Time) {
				return validation("doctor is not available on %s at %s", req.Date, req.Time)
			}
		}

		taken, err := HasConflict(ctx, tx, req.DoctorID, req.Date, req.Time)
		if err != nil {
			return err
		}
		if taken {
			return conflict("slot %s %s is already booked", req.Date, req.Time)
		}
		return tx.CreateAppointment(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	appt.Patient = patient
	return appt, nil
}

func (s *Service) validateRequest(req *AppointmentRequest) error {
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Kind = strings.TrimSpace(req.Kind)
	req.Reason = strings.TrimSpace(req.Reason)
	req.Notes = trimNotes(req.Notes)

	switch {
	case req.DoctorID == "":
		return validation("doctor is required")
	case req.Date.IsZero():
		return validation("date is required")
	case !req.Time.Valid():
		return validation("time %d is outside the day", int(req.Time))
	case req.Kind == "":
		return validation("appointment type is required")
	case req.Reason == "":
		return validation("reason is required")
	}

	today := s.today()
	if req.Date.Before(today) {
		return validation("date %s is in the past", req.Date)
	}
	if s.opts.MaxAdvanceDays > 0 {
		limit := today.AddDays(s.opts.MaxAdvanceDays)
		if req.Date.After(limit) {
			return validation("appointments can be booked at most %d days ahead (until %s)", s.opts.MaxAdvanceDays, limit)
		}
	}
	return nil
}

// ChangeStatus moves an appointment to target if actor may do so.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, appointmentID string, target models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.changeStatus(ctx, actor, appointmentID, target)
	if err != nil {
		s.log.Audit(actor.ID, "appointment.change_status", "appointment:"+appointmentID, false, map[string]interface{}{
			"target": string(target),
			"error":  err.Error(),
		})
		return nil, err
	}
	return appt, nil
}

func (s *Service) changeStatus(ctx context.Context, actor Actor, appointmentID string, target models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, CapTransition, subjectOf(appt)); err != nil {
		return nil, err
	}

	from := appt.Status
	if err := Transition(actor.Role, from, target); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointmentStatus(ctx, appt.ID, from, target); err != nil {
		return nil, err
	}

	appt.Status = target
	appt.SlotLock = models.SlotLockFor(target)
	appt.UpdatedAt = s.opts.Now()

	s.metrics.statusChanged(from, target)
	s.log.Audit(actor.ID, "appointment.change_status", "appointment:"+appt.ID, true, map[string]interface{}{
		"from": string(from),
		"to":   string(target),
	})
	return appt, nil
}

// Cancel is ChangeStatus to cancelled, available to the owning patient only.
func (s *Service) Cancel(ctx context.Context, actor Actor, appointmentID string) (*models.Appointment, error) {
	if actor.Role != models.RolePatient {
		return nil, permissionDenied("only the patient can cancel through this operation")
	}
	return s.ChangeStatus(ctx, actor, appointmentID, models.StatusCancelled)
}

// EditNotes replaces the notes of an appointment. Blank notes clear them.
func (s *Service) EditNotes(ctx context.Context, actor Actor, appointmentID string, notes string) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, CapAnnotate, subjectOf(appt)); err != nil {
		s.log.Audit(actor.ID, "appointment.edit_notes", "appointment:"+appointmentID, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	trimmed := trimNotes(&notes)
	if err := s.store.UpdateAppointmentNotes(ctx, appt.ID, trimmed); err != nil {
		return nil, err
	}
	appt.Notes = trimmed
	appt.UpdatedAt = s.opts.Now()

	s.log.Audit(actor.ID, "appointment.edit_notes", "appointment:"+appt.ID, true, map[string]interface{}{
		"cleared": trimmed == nil,
	})
	return appt, nil
}

// GetAppointment returns one appointment visible to actor.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, appointmentID string) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, CapRead, subjectOf(appt)); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListAppointments returns the appointments actor may see, ordered by date
// then time.
func (s *Service) ListAppointments(ctx context.Context, actor Actor, q ListQuery) ([]models.Appointment, error) {
	filter, ok, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Appointment{}, nil
	}
	if actor.Role == models.RoleNurse {
		filter.DoctorID = q.DoctorID
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, validation("unknown appointment status %q", string(st))
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, validation("range end %s is before start %s", q.To, q.From)
	}
	filter.Statuses = q.Statuses
	filter.From = q.From
	filter.To = q.To

	return s.store.ListAppointments(ctx, filter)
}

// PendingForDoctor lists the doctor's appointments still waiting for
// confirmation.
func (s *Service) PendingForDoctor(ctx context.Context, actor Actor) ([]models.Appointment, error) {
	if actor.Role != models.RoleDoctor {
		return nil, permissionDenied("%s has no pending queue", roleLabel(actor.Role))
	}
	return s.store.ListAppointments(ctx, AppointmentFilter{
		DoctorID: actor.ID,
		Statuses: []models.AppointmentStatus{models.StatusPending},
	})
}

// Summary counts the appointments actor may see by status.
func (s *Service) Summary(ctx context.Context, actor Actor) (StatusSummary, error) {
	var summary StatusSummary
	filter, ok, err := s.scope(ctx, actor)
	if err != nil || !ok {
		return summary, err
	}

	counts, err := s.store.CountAppointmentsByStatus(ctx, filter)
	if err != nil {
		return summary, err
	}
	for _, st := range models.AllStatuses {
		n := counts[st]
		switch st {
		case models.StatusPending:
			summary.Pending = n
		case models.StatusConfirmed:
			summary.Confirmed = n
		case models.StatusCompleted:
			summary.Completed = n
		case models.StatusCancelled:
			summary.Cancelled = n
		}
		summary.Total += n
	}
	return summary, nil
}

// ListDoctors returns every user with the doctor role.
func (s *Service) ListDoctors(ctx context.Context) ([]models.UserSanitized, error) {
	users, err := s.store.ListUsersByRole(ctx, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	doctors := make([]models.UserSanitized, 0, len(users))
	for i := range users {
		doctors = append(doctors, users[i].Sanitize())
	}
	return doctors, nil
}

// scope returns the base filter for what actor may see. ok is false when
// the actor can see nothing, e.g. a patient user without a patient record.
func (s *Service) scope(ctx context.Context, actor Actor) (AppointmentFilter, bool, error) {
	if actor.ID == "" {
		return AppointmentFilter{}, false, permissionDenied("unauthenticated actor")
	}
	switch actor.Role {
	case models.RoleDoctor:
		return AppointmentFilter{DoctorID: actor.ID}, true, nil
	case models.RoleNurse:
		return AppointmentFilter{}, true, nil
	case models.RolePatient:
		patient, err := s.store.GetPatientByUserID(ctx, actor.ID)
		if KindOf(err) == KindNotFound {
			return AppointmentFilter{}, false, nil
		}
		if err != nil {
			return AppointmentFilter{}, false, err
		}
		return AppointmentFilter{PatientID: patient.ID}, true, nil
	}
	return AppointmentFilter{}, false, permissionDenied("%s may not list appointments", roleLabel(actor.Role))
}

// doctor resolves id to a user with the doctor role.
func (s *Service) doctor(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, notFound("doctor %s not found", id)
		}
		return nil, err
	}
	if user.Role != models.RoleDoctor {
		return nil, notFound("doctor %s not found", id)
	}
	return user, nil
}

func (s *Service) today() models.Date {
	return models.DateOf(s.opts.Now().In(s.opts.Location))
}

func subjectOf(appt *models.Appointment) Subject {
	subject := Subject{DoctorID: appt.DoctorID}
	if appt.Patient != nil && appt.Patient.UserID != nil {
		subject.PatientUserID = *appt.Patient.UserID
	}
	return subject
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
