package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hospital-app-server/internal/models"
	"hospital-app-server/internal/scheduling"
	"hospital-app-server/internal/utils"
)

// AppointmentService is the part of scheduling.Service the appointment
// routes use.
type AppointmentService interface {
	RequestAppointment(ctx context.Context, actor scheduling.Actor, req scheduling.AppointmentRequest) (*models.Appointment, error)
	GetAppointment(ctx context.Context, actor scheduling.Actor, appointmentID string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, actor scheduling.Actor, q scheduling.ListQuery) ([]models.Appointment, error)
	PendingForDoctor(ctx context.Context, actor scheduling.Actor) ([]models.Appointment, error)
	Summary(ctx context.Context, actor scheduling.Actor) (scheduling.StatusSummary, error)
	ChangeStatus(ctx context.Context, actor scheduling.Actor, appointmentID string, target models.AppointmentStatus) (*models.Appointment, error)
	Cancel(ctx context.Context, actor scheduling.Actor, appointmentID string) (*models.Appointment, error)
	EditNotes(ctx context.Context, actor scheduling.Actor, appointmentID string, notes string) (*models.Appointment, error)
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
// The patient is always the authenticated user.
type CreateAppointmentRequest struct {
	DoctorID string  `json:"doctorId" binding:"required,uuid"`
	Date     string  `json:"date" binding:"required"`
	Time     string  `json:"time" binding:"required"`
	Kind     string  `json:"kind" binding:"required,max=100"`
	Reason   string  `json:"reason" binding:"required"`
	Notes    *string `json:"notes"`
}

// CreateAppointment handles a patient booking a slot.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	at, err := models.ParseTimeOfDay(req.Time)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	appointment, err := h.Service.RequestAppointment(c.Request.Context(), actor, scheduling.AppointmentRequest{
		DoctorID: req.DoctorID,
		Date:     date,
		Time:     at,
		Kind:     req.Kind,
		Reason:   req.Reason,
		Notes:    req.Notes,
	})
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment requested successfully", appointment)
}

// ListAppointmentsQuery holds the optional filters of GET /appointments.
type ListAppointmentsQuery struct {
	Status   string `form:"status"`
	From     string `form:"from"`
	To       string `form:"to"`
	DoctorID string `form:"doctorId" binding:"omitempty,uuid"`
}

// GetAppointmentsForUser lists what the caller may see: patients their own
// appointments, doctors their assigned ones, nurses everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var query ListAppointmentsQuery
	if !utils.BindQueryAndValidate(c, &query) {
		return
	}

	q := scheduling.ListQuery{DoctorID: query.DoctorID}
	if query.Status != "" {
		for _, raw := range strings.Split(query.Status, ",") {
			status, err := models.ParseStatus(strings.TrimSpace(raw))
			if err != nil {
				utils.BadRequest(c, err.Error())
				return
			}
			q.Statuses = append(q.Statuses, status)
		}
	}
	var err error
	if query.From != "" {
		if q.From, err = models.ParseDate(query.From); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}
	if query.To != "" {
		if q.To, err = models.ParseDate(query.To); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}

	appointments, err := h.Service.ListAppointments(c.Request.Context(), actor, q)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetPendingAppointments lists the caller's appointments awaiting confirmation.
func (h *AppointmentHandler) GetPendingAppointments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	appointments, err := h.Service.PendingForDoctor(c.Request.Context(), actor)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Pending appointments fetched successfully", appointments)
}

// GetSummary returns per-status counts for the dashboard.
func (h *AppointmentHandler) GetSummary(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(c.Request.Context(), actor)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment summary fetched successfully", summary)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := pathID(c, "Appointment")
	if !ok {
		return
	}

	appointment, err := h.Service.GetAppointment(c.Request.Context(), actor, appointmentID)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAppointmentStatus moves an appointment through its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := pathID(c, "Appointment")
	if !ok {
		return
	}

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	appointment, err := h.Service.ChangeStatus(c.Request.Context(), actor, appointmentID, target)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// CancelAppointment lets a patient cancel their own appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := pathID(c, "Appointment")
	if !ok {
		return
	}

	appointment, err := h.Service.Cancel(c.Request.Context(), actor, appointmentID)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// UpdateNotesRequest represents the request body for editing notes. An
// empty string clears them.
type UpdateNotesRequest struct {
	Notes string `json:"notes" binding:"max=5000"`
}

// UpdateAppointmentNotes lets the assigned doctor edit the notes.
func (h *AppointmentHandler) UpdateAppointmentNotes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	appointmentID, ok := pathID(c, "Appointment")
	if !ok {
		return
	}

	var req UpdateNotesRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Service.EditNotes(c.Request.Context(), actor, appointmentID, req.Notes)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment notes updated successfully", appointment)
}

// pathID reads and checks the :id path parameter.
func pathID(c *gin.Context, entity string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid "+entity+" ID format")
		return "", false
	}
	return id, true
}
