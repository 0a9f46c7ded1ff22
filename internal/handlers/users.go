package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"hospital-app-server/internal/middleware"
	"hospital-app-server/internal/models"
	"hospital-app-server/internal/scheduling"
	"hospital-app-server/internal/utils"
)

// DoctorDirectory lists bookable doctors.
type DoctorDirectory interface {
	ListDoctors(ctx context.Context) ([]models.UserSanitized, error)
}

// UserHandler serves user directory lookups.
type UserHandler struct {
	Service DoctorDirectory
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service DoctorDirectory) *UserHandler {
	return &UserHandler{Service: service}
}

// GetDoctors lists the doctors a patient can book with.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Service.ListDoctors(c.Request.Context())
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Doctors fetched successfully", doctors)
}

// actorFrom reads the authenticated actor and answers 401 when there is none.
func actorFrom(c *gin.Context) (scheduling.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "Authentication required")
		return scheduling.Actor{}, false
	}
	return actor, true
}
