package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"hospital-app-server/internal/config"
	"hospital-app-server/internal/logger"
	"hospital-app-server/internal/models"
	"hospital-app-server/internal/scheduling"
	"hospital-app-server/internal/utils"
)

// UserStore is what authentication needs from the store.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Users UserStore
	Cfg   *config.Config
	Log   *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UserStore, cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Cfg: cfg, Log: log}
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken string               `json:"accessToken"`
	ExpiresIn   int                  `json:"expiresIn"`
	User        models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if scheduling.KindOf(err) == scheduling.KindNotFound {
			h.Log.Audit("", "auth.login", "user:"+req.Username, false, map[string]interface{}{"reason": "unknown user"})
			utils.Unauthorized(c, "Invalid username or password")
			return
		}
		utils.SchedulingError(c, err)
		return
	}

	if !user.CheckPassword(req.Password) {
		h.Log.Audit(user.ID, "auth.login", "user:"+user.ID, false, map[string]interface{}{"reason": "bad password"})
		utils.Unauthorized(c, "Invalid username or password")
		return
	}

	ttl := time.Duration(h.Cfg.JWTExpirationMinutes) * time.Minute
	accessToken, err := utils.GenerateAccessToken(user, h.Cfg.JWTSecret, ttl)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate token")
		return
	}

	h.Log.Audit(user.ID, "auth.login", "user:"+user.ID, true, nil)
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(ttl.Seconds()),
		User:        user.Sanitize(),
	})
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	user, err := h.Users.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		utils.SchedulingError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}
