package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/session"
	"github.com/stemsi/exam-portal/internal/validator"
)

// SessionService is the session identity store as used by the HTTP layer.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, token string, req model.UpdateProfileRequest) (*model.Identity, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	sessions SessionService
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions SessionService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		log:      log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates against the account directory and starts a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("Login error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the current session. Later requests with the same token are anonymous.
func (h *AuthHandler) Logout(c *gin.Context) {
	err := h.sessions.Logout(c.Request.Context(), middleware.GetToken(c))
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		h.log.Error().Err(err).Msg("Logout error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the current session identity.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"identity": identity})
}

// UpdateProfile godoc
// PUT /api/v1/auth/profile
// Refreshes the display name and email of the current session identity.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	identity, err := h.sessions.UpdateProfile(c.Request.Context(), middleware.GetToken(c), req)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			response.Fail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}
		h.log.Error().Err(err).Msg("Update profile error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"identity": identity})
}
