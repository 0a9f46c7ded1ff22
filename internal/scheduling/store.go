package scheduling

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hospital-app-server/internal/models"
)

// MySQL server error numbers the store reacts to.
const (
	mysqlDuplicateEntry   = 1062 // ER_DUP_ENTRY
	mysqlLockWaitTimeout  = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlock         = 1213 // ER_LOCK_DEADLOCK
	lockContentionRetries = 1
)

// AppointmentFilter narrows appointment queries. Zero fields are ignored.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Statuses  []models.AppointmentStatus
	From      models.Date
	To        models.Date
}

// Store is the durable side of scheduling. Every error it returns is an
// *Error: not_found for missing rows, conflict for unique violations and
// lock contention, store for everything else.
type Store interface {
	// InTx runs fn against a store bound to one transaction. Reads that feed
	// a decision inside fn lock the rows they return.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	ActiveAppointmentsAt(ctx context.Context, doctorID string, date models.Date, at models.TimeOfDay) ([]models.Appointment, error)
	// UpdateAppointmentStatus changes the status only if it is still from.
	UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error
	UpdateAppointmentNotes(ctx context.Context, id string, notes *string) error
	CountAppointmentsByStatus(ctx context.Context, filter AppointmentFilter) (map[models.AppointmentStatus]int64, error)

	CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error
	GetWindow(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	// ListWindows returns a doctor's windows, all of them when weekday is nil.
	ListWindows(ctx context.Context, doctorID string, weekday *models.Weekday) ([]models.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, id string) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error)
}

// GormStore implements Store on top of GORM.
type GormStore struct {
	db      *gorm.DB
	locking bool
}

// NewGormStore wraps an open database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// InTx retries fn once when InnoDB aborts it for a deadlock or a lock wait
// timeout, so the second run sees what the winner committed. Contention
// that persists is reported as a conflict.
func (s *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	var err error
	for attempt := 0; attempt <= lockContentionRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&GormStore{db: tx, locking: true})
		})
		if !isLockContention(err) {
			break
		}
	}
	return translate("transaction", err)
}

// forUpdate adds SELECT ... FOR UPDATE when the store is bound to a transaction.
func (s *GormStore) forUpdate(q *gorm.DB) *gorm.DB {
	if s.locking {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *GormStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return translate("create appointment", s.db.WithContext(ctx).Create(appt).Error)
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").Where("id = ?", id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("appointment %s not found", id)
	}
	if err != nil {
		return nil, translate("get appointment", err)
	}
	return &appt, nil
}

func (s *GormStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := applyFilter(s.db.WithContext(ctx).Model(&models.Appointment{}), filter)
	err := q.Preload("Patient").Order("fecha ASC").Order("hora ASC").Find(&appts).Error
	if err != nil {
		return nil, translate("list appointments", err)
	}
	return appts, nil
}

func (s *GormStore) ActiveAppointmentsAt(ctx context.Context, doctorID string, date models.Date, at models.TimeOfDay) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := s.db.WithContext(ctx).
		Where("medico_id = ? AND fecha = ? AND hora = ?", doctorID, date, at).
		Where("estado IN ?", models.ActiveStatuses)
	if err := s.forUpdate(q).Find(&appts).Error; err != nil {
		return nil, translate("check slot", err)
	}
	return appts, nil
}

func (s *GormStore) UpdateAppointmentStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND estado = ?", id, from).
		Updates(map[string]interface{}{
			"estado":    to,
			"slot_lock": models.SlotLockFor(to),
		})
	if res.Error != nil {
		return translate("update appointment status", res.Error)
	}
	if res.RowsAffected == 0 {
		return conflict("appointment %s is no longer %s", id, from)
	}
	return nil
}

func (s *GormStore) UpdateAppointmentNotes(ctx context.Context, id string, notes *string) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("notas", notes)
	if res.Error != nil {
		return translate("update appointment notes", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("appointment %s not found", id)
	}
	return nil
}

func (s *GormStore) CountAppointmentsByStatus(ctx context.Context, filter AppointmentFilter) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Total  int64
	}
	q := applyFilter(s.db.WithContext(ctx).Model(&models.Appointment{}), filter)
	err := q.Select("estado AS status, COUNT(*) AS total").Group("estado").Scan(&rows).Error
	if err != nil {
		return nil, translate("count appointments", err)
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func applyFilter(q *gorm.DB, f AppointmentFilter) *gorm.DB {
	if f.DoctorID != "" {
		q = q.Where("medico_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("paciente_id = ?", f.PatientID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("estado IN ?", f.Statuses)
	}
	if !f.From.IsZero() {
		q = q.Where("fecha >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("fecha <= ?", f.To)
	}
	return q
}

func (s *GormStore) CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	return translate("create availability window", s.db.WithContext(ctx).Create(w).Error)
}

func (s *GormStore) GetWindow(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	var w models.AvailabilityWindow
	err := s.forUpdate(s.db.WithContext(ctx)).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("availability window %s not found", id)
	}
	if err != nil {
		return nil, translate("get availability window", err)
	}
	return &w, nil
}

func (s *GormStore) ListWindows(ctx context.Context, doctorID string, weekday *models.Weekday) ([]models.AvailabilityWindow, error) {
	var windows []models.AvailabilityWindow
	q := s.db.WithContext(ctx).Where("medico_id = ?", doctorID)
	if weekday != nil {
		q = q.Where("dia_semana = ?", *weekday)
	}
	err := s.forUpdate(q).Order("dia_semana ASC").Order("hora_inicio ASC").Find(&windows).Error
	if err != nil {
		return nil, translate("list availability windows", err)
	}
	return windows, nil
}

func (s *GormStore) UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	res := s.db.WithContext(ctx).Model(&models.AvailabilityWindow{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"dia_semana":    w.Weekday,
			"hora_inicio":   w.Start,
			"hora_fin":      w.End,
			"duracion_cita": w.SlotDuration,
			"activo":        w.Active,
		})
	if res.Error != nil {
		return translate("update availability window", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("availability window %s not found", w.ID)
	}
	return nil
}

func (s *GormStore) DeleteWindow(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AvailabilityWindow{})
	if res.Error != nil {
		return translate("delete availability window", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("availability window %s not found", id)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, lookupError("user", id, err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("nombre_usuario = ?", username).First(&user).Error; err != nil {
		return nil, lookupError("user", username, err)
	}
	return &user, nil
}

func (s *GormStore) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("tipo_usuario = ?", role).Order("nombre_usuario ASC").Find(&users).Error
	if err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

func (s *GormStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&patient).Error; err != nil {
		return nil, lookupError("patient", id, err)
	}
	return &patient, nil
}

func (s *GormStore) GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	var patient models.Patient
	if err := s.db.WithContext(ctx).Where("usuario_id = ?", userID).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("no patient record for user %s", userID)
		}
		return nil, translate("get patient", err)
	}
	return &patient, nil
}

func lookupError(entity, key string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s %s not found", entity, key)
	}
	return translate("get "+entity, err)
}

// translate maps driver and GORM errors onto scheduling errors.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var schedErr *Error
	if errors.As(err, &schedErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s: not found", op), Cause: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Kind: KindConflict, Message: fmt.Sprintf("%s: duplicate entry", op), Cause: err}
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDuplicateEntry:
			return &Error{Kind: KindConflict, Message: fmt.Sprintf("%s: duplicate entry", op), Cause: err}
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return &Error{Kind: KindConflict, Message: fmt.Sprintf("%s: concurrent update, try again", op), Cause: err}
		}
	}
	return storeFailure(op, err)
}

func isLockContention(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == mysqlDeadlock || mysqlErr.Number == mysqlLockWaitTimeout
}
