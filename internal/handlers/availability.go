package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"hospital-app-server/internal/models"
	"hospital-app-server/internal/scheduling"
	"hospital-app-server/internal/utils"
)

// WindowManager is the part of scheduling.AvailabilityManager the
// availability routes use.
type WindowManager interface {
	AddWindow(ctx context.Context, actor scheduling.Actor, in scheduling.WindowInput) (*models.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, actor scheduling.Actor, windowID string, in scheduling.WindowInput) (*models.AvailabilityWindow, error)
	SetActive(ctx context.Context, actor scheduling.Actor, windowID string, active bool) (*models.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, actor scheduling.Actor, windowID string) error
	ListWindows(ctx context.Context, actor scheduling.Actor, doctorID string) ([]models.AvailabilityWindow, error)
}

// SlotFinder computes bookable slots.
type SlotFinder interface {
	AvailableSlots(ctx context.Context, actor scheduling.Actor, doctorID string, date models.Date) ([]scheduling.Slot, error)
}

// AvailabilityHandler handles doctors' weekly windows and slot lookups.
type AvailabilityHandler struct {
	Windows WindowManager
	Slots   SlotFinder
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(windows WindowManager, slots SlotFinder) *AvailabilityHandler {
	return &AvailabilityHandler{Windows: windows, Slots: slots}
}

// WindowRequest is the body of create and update. Times are HH:MM, and a
// missing slotDuration falls back to the default.
type WindowRequest struct {
	Weekday      int    `json:"weekday" binding:"required,min=1,max=7"`
	Start        string `json:"start" binding:"required"`
	End          string `json:"end" binding:"required"`
	SlotDuration int    `json:"slotDuration" binding:"min=0,max=480"`
	Active       *bool  `json:"active"`
}

func (r WindowRequest) input() (scheduling.WindowInput, error) {
	start, err := models.ParseTimeOfDay(r.Start)
	if err != nil {
		return scheduling.WindowInput{}, err
	}
	end, err := models.ParseTimeOfDay(r.End)
	if err != nil {
		return scheduling.WindowInput{}, err
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return scheduling.WindowInput{
		Weekday:      models.Weekday(r.Weekday),
		Start:        start,
		End:          end,
		SlotDuration: r.SlotDuration,
		Active:       active,
	}, nil
}

// CreateWindow adds a window to the calling doctor's schedule.
func (h *AvailabilityHandler) CreateWindow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req WindowRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	window, err := h.Windows.AddWindow(c.Request.Context(), actor, in)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Created(c, "Availability window created successfully", window)
}

// UpdateWindow replaces a window's day, times, duration and active flag.
func (h *AvailabilityHandler) UpdateWindow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	windowID, ok := pathID(c, "Availability window")
	if !ok {
		return
	}

	var req WindowRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	window, err := h.Windows.UpdateWindow(c.Request.Context(), actor, windowID, in)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Availability window updated successfully", window)
}

// SetActiveRequest toggles a window on or off.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetWindowActive toggles a window without touching its times.
func (h *AvailabilityHandler) SetWindowActive(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	windowID, ok := pathID(c, "Availability window")
	if !ok {
		return
	}

	var req SetActiveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	window, err := h.Windows.SetActive(c.Request.Context(), actor, windowID, *req.Active)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Availability window updated successfully", window)
}

// DeleteWindow removes a window.
func (h *AvailabilityHandler) DeleteWindow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	windowID, ok := pathID(c, "Availability window")
	if !ok {
		return
	}

	if err := h.Windows.DeleteWindow(c.Request.Context(), actor, windowID); err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Availability window deleted successfully", nil)
}

// GetDoctorWindows lists a doctor's windows, inactive ones included.
func (h *AvailabilityHandler) GetDoctorWindows(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	doctorID, ok := pathID(c, "Doctor")
	if !ok {
		return
	}

	windows, err := h.Windows.ListWindows(c.Request.Context(), actor, doctorID)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Availability fetched successfully", windows)
}

// SlotsQuery is the query string of GET /doctors/:id/slots.
type SlotsQuery struct {
	Date string `form:"date" binding:"required"`
}

// GetDoctorSlots lists the free slots of a doctor on one date.
func (h *AvailabilityHandler) GetDoctorSlots(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	doctorID, ok := pathID(c, "Doctor")
	if !ok {
		return
	}

	var query SlotsQuery
	if !utils.BindQueryAndValidate(c, &query) {
		return
	}
	date, err := models.ParseDate(query.Date)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	slots, err := h.Slots.AvailableSlots(c.Request.Context(), actor, doctorID, date)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Available slots fetched successfully", slots)
}
