package scheduling

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"hospital-app-server/internal/models"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	users        map[string]*models.User
	patients     map[string]*models.Patient
	appointments map[string]*models.Appointment
	windows      map[string]*models.AvailabilityWindow

	// failNext makes the next call of the named method fail.
	failNext map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*models.User),
		patients:     make(map[string]*models.Patient),
		appointments: make(map[string]*models.Appointment),
		windows:      make(map[string]*models.AvailabilityWindow),
		failNext:     make(map[string]error),
	}
}

func (f *fakeStore) addUser(id, username string, role models.Role) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{Username: username, Role: role}
	u.ID = id
	f.users[id] = u
	return u
}

func (f *fakeStore) addPatient(id string, userID *string, name string) *models.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Patient{UserID: userID, Name: name}
	p.ID = id
	f.patients[id] = p
	return p
}

func (f *fakeStore) fail(method string) error {
	if err, ok := f.failNext[method]; ok {
		delete(f.failNext, method)
		return err
	}
	return nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(f)
}

func (f *fakeStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateAppointment"); err != nil {
		return err
	}
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	appt.SlotLock = models.SlotLockFor(appt.Status)
	for _, other := range f.appointments {
		if other.SlotLock != nil && appt.SlotLock != nil &&
			other.DoctorID == appt.DoctorID && other.Date == appt.Date && other.Time == appt.Time {
			return conflict("create appointment: duplicate entry")
		}
	}
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

func (f *fakeStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetAppointment"); err != nil {
		return nil, err
	}
	appt, ok := f.appointments[id]
	if !ok {
		return nil, notFound("appointment %s not found", id)
	}
	return f.withPatient(*appt), nil
}

func (f *fakeStore) withPatient(appt models.Appointment) *models.Appointment {
	if p, ok := f.patients[appt.PatientID]; ok {
		cp := *p
		appt.Patient = &cp
	}
	return &appt
}

func (f *fakeStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListAppointments"); err != nil {
		return nil, err
	}
	out := []models.Appointment{}
	for _, a := range f.appointments {
		if matches(a, filter) {
			out = append(out, *f.withPatient(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func matches(a *models.Appointment, f AppointmentFilter) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if a.Status == st {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && a.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.Date.After(f.To) {
		return false
	}
	return true
}

func (f *fakeStore) ActiveAppointmentsAt(ctx context.Context, doctorID string, date models.Date, at models.TimeOfDay) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ActiveAppointmentsAt"); err != nil {
		return nil, err
	}
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Time == at && a.Status.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UpdateAppointmentStatus"); err != nil {
		return err
	}
	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return conflict("appointment %s is no longer %s", id, from)
	}
	a.Status = to
	a.SlotLock = models.SlotLockFor(to)
	return nil
}

func (f *fakeStore) UpdateAppointmentNotes(ctx context.Context, id string, notes *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UpdateAppointmentNotes"); err != nil {
		return err
	}
	a, ok := f.appointments[id]
	if !ok {
		return notFound("appointment %s not found", id)
	}
	a.Notes = notes
	return nil
}

func (f *fakeStore) CountAppointmentsByStatus(ctx context.Context, filter AppointmentFilter) (map[models.AppointmentStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.AppointmentStatus]int64)
	for _, a := range f.appointments {
		if matches(a, filter) {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStore) CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateWindow"); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	stored := *w
	f.windows[w.ID] = &stored
	return nil
}

func (f *fakeStore) GetWindow(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return nil, notFound("availability window %s not found", id)
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) ListWindows(ctx context.Context, doctorID string, weekday *models.Weekday) ([]models.AvailabilityWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListWindows"); err != nil {
		return nil, err
	}
	out := []models.AvailabilityWindow{}
	for _, w := range f.windows {
		if w.DoctorID != doctorID {
			continue
		}
		if weekday != nil && w.Weekday != *weekday {
			continue
		}
		out = append(out, *w)
	}
	// map order is random; callers must not rely on it
	return out, nil
}

func (f *fakeStore) UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[w.ID]; !ok {
		return notFound("availability window %s not found", w.ID)
	}
	stored := *w
	f.windows[w.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteWindow(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[id]; !ok {
		return notFound("availability window %s not found", id)
	}
	delete(f.windows, id)
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user %s not found", username)
}

func (f *fakeStore) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, notFound("patient %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if p.OwnedBy(userID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound("no patient record for user %s", userID)
}
