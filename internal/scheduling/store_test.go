package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hospital-app-server/internal/models"
)

func setupTestStore(t *testing.T) (*GormStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return NewGormStore(gdb), mock, cleanup
}

var appointmentColumns = []string{"id", "paciente_id", "medico_id", "fecha", "hora", "tipo_cita", "motivo", "estado"}

func TestGormStore_BookingInTransaction(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(appointmentColumns))
	mock.ExpectExec("INSERT INTO `citas`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	date := models.Date{Year: 2024, Month: time.June, Day: 10}
	appt := &models.Appointment{
		PatientID: "p-1",
		DoctorID:  "doc-1",
		Date:      date,
		Time:      models.NewTimeOfDay(9, 0),
		Kind:      "consulta",
		Reason:    "control",
	}

	err := store.InTx(ctx, func(tx Store) error {
		taken, err := HasConflict(ctx, tx, "doc-1", date, appt.Time)
		if err != nil {
			return err
		}
		require.False(t, taken)
		return tx.CreateAppointment(ctx, appt)
	})
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, models.StatusPending, appt.Status)
	require.NotNil(t, appt.SlotLock)
	assert.True(t, *appt.SlotLock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ConflictRollsBack(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow("a-1", "p-1", "doc-1", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "09:00:00", "consulta", "control", "confirmada"))
	mock.ExpectRollback()

	date := models.Date{Year: 2024, Month: time.June, Day: 10}
	err := store.InTx(ctx, func(tx Store) error {
		taken, err := HasConflict(ctx, tx, "doc-1", date, models.NewTimeOfDay(9, 0))
		if err != nil {
			return err
		}
		if taken {
			return conflict("slot taken")
		}
		return nil
	})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DuplicateKeyIsConflict(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO `citas`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'idx_citas_active_slot'"})

	err := store.CreateAppointment(context.Background(), &models.Appointment{
		PatientID: "p-1",
		DoctorID:  "doc-1",
		Date:      models.Date{Year: 2024, Month: time.June, Day: 10},
		Time:      models.NewTimeOfDay(9, 0),
		Kind:      "consulta",
		Reason:    "control",
	})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bookSlot(ctx context.Context, store *GormStore, appt *models.Appointment) error {
	return store.InTx(ctx, func(tx Store) error {
		taken, err := HasConflict(ctx, tx, appt.DoctorID, appt.Date, appt.Time)
		if err != nil {
			return err
		}
		if taken {
			return conflict("slot taken")
		}
		return tx.CreateAppointment(ctx, appt)
	})
}

func TestGormStore_DeadlockRetriesAndSeesWinner(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(appointmentColumns))
	mock.ExpectExec("INSERT INTO `citas`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow("a-1", "p-2", "doc-1", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "09:00:00", "consulta", "control", "pendiente"))
	mock.ExpectRollback()

	err := bookSlot(context.Background(), store, &models.Appointment{
		PatientID: "p-1",
		DoctorID:  "doc-1",
		Date:      models.Date{Year: 2024, Month: time.June, Day: 10},
		Time:      models.NewTimeOfDay(9, 0),
		Kind:      "consulta",
		Reason:    "control",
	})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_PersistentLockContentionIsConflict(t *testing.T) {
	for _, number := range []uint16{1213, 1205} {
		store, mock, cleanup := setupTestStore(t)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT \\* FROM `citas` WHERE (.+) FOR UPDATE").
				WillReturnRows(sqlmock.NewRows(appointmentColumns))
			mock.ExpectExec("INSERT INTO `citas`").
				WillReturnError(&mysqldriver.MySQLError{Number: number})
			mock.ExpectRollback()
		}

		err := bookSlot(context.Background(), store, &models.Appointment{
			PatientID: "p-1",
			DoctorID:  "doc-1",
			Date:      models.Date{Year: 2024, Month: time.June, Day: 10},
			Time:      models.NewTimeOfDay(9, 0),
			Kind:      "consulta",
			Reason:    "control",
		})
		assert.True(t, errors.Is(err, ErrConflict), "error %d: got %v", number, err)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
		cleanup()
	}
}

func TestTranslate_LockErrors(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(translate("transaction", &mysqldriver.MySQLError{Number: 1213})))
	assert.Equal(t, KindConflict, KindOf(translate("transaction", &mysqldriver.MySQLError{Number: 1205})))
	assert.Equal(t, KindStore, KindOf(translate("transaction", &mysqldriver.MySQLError{Number: 1146})))
}

func TestGormStore_GetAppointment(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(appointmentColumns).
			AddRow("a-1", "p-1", "doc-1", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "09:30:00", "consulta", "control", "pendiente"))
	mock.ExpectQuery("SELECT \\* FROM `pacientes` WHERE `pacientes`.`id` = \\?").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "usuario_id", "nombre"}).AddRow("p-1", "pu-1", "Ana Torres"))

	appt, err := store.GetAppointment(context.Background(), "a-1")
	require.NoError(t, err)

	assert.Equal(t, "2024-06-10", appt.Date.String())
	assert.Equal(t, "09:30", appt.Time.String())
	assert.Equal(t, models.StatusPending, appt.Status)
	require.NotNil(t, appt.Patient)
	assert.True(t, appt.Patient.OwnedBy("pu-1"))
	assert.Equal(t, Subject{DoctorID: "doc-1", PatientUserID: "pu-1"}, subjectOf(appt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetAppointmentNotFound(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `citas` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(appointmentColumns))

	_, err := store.GetAppointment(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateAppointmentStatus(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectExec("UPDATE `citas` SET (.+) WHERE id = \\? AND estado = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.UpdateAppointmentStatus(ctx, "a-1", models.StatusPending, models.StatusConfirmed))

	// someone else moved it first
	mock.ExpectExec("UPDATE `citas` SET (.+) WHERE id = \\? AND estado = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.UpdateAppointmentStatus(ctx, "a-1", models.StatusPending, models.StatusCancelled)
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CountAppointmentsByStatus(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT estado AS status, COUNT\\(\\*\\) AS total FROM `citas` WHERE medico_id = \\? GROUP BY").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).
			AddRow("pendiente", 2).
			AddRow("confirmada", 1))

	counts, err := store.CountAppointmentsByStatus(context.Background(), AppointmentFilter{DoctorID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusPending])
	assert.Equal(t, int64(1), counts[models.StatusConfirmed])
	assert.Zero(t, counts[models.StatusCancelled])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListWindows(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `horarios_medicos` WHERE medico_id = \\? AND dia_semana = \\? ORDER BY dia_semana ASC,hora_inicio ASC").
		WithArgs("doc-1", models.Monday).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medico_id", "dia_semana", "hora_inicio", "hora_fin", "duracion_cita", "activo"}).
			AddRow("w-1", "doc-1", 1, "08:00:00", "12:00:00", 30, true).
			AddRow("w-2", "doc-1", 1, "14:00:00", "16:00:00", 20, false))

	monday := models.Monday
	windows, err := store.ListWindows(context.Background(), "doc-1", &monday)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, models.Monday, windows[0].Weekday)
	assert.Equal(t, models.NewTimeOfDay(12, 0), windows[0].End)
	assert.True(t, windows[0].Active)
	assert.Equal(t, 20, windows[1].SlotDuration)
	assert.False(t, windows[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteWindowNotFound(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM `horarios_medicos` WHERE id = \\?").
		WithArgs("w-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteWindow(context.Background(), "w-9")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ConnectionFailureIsStoreError(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `usuarios` WHERE id = \\?").
		WillReturnError(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"))

	_, err := store.GetUser(context.Background(), "doc-1")
	assert.True(t, errors.Is(err, ErrStore), "got %v", err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetUserDecodesRole(t *testing.T) {
	store, mock, cleanup := setupTestStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `usuarios` WHERE nombre_usuario = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre_usuario", "password_hash", "tipo_usuario"}).
			AddRow("doc-1", "dr.house", "hash", "medico"))

	user, err := store.GetUserByUsername(context.Background(), "dr.house")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
