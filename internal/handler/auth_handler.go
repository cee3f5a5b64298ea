package handler

import (
	"errors"
	"net/http"

	"github.com/examdrive/examdrive-backend/internal/middleware"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/examdrive/examdrive-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// StudentLogin godoc
// POST /api/v1/student/auth/login
// Exchanges an email and access token pair for a single-device JWT.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, student, err := h.authService.StudentLogin(c.Request.Context(), req.Email, req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		case errors.Is(err, service.ErrSessionAlreadyActive):
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
		default:
			failService(c, h.log, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"student": student,
	})
}

// StudentLogout godoc
// POST /api/v1/student/auth/logout
// Releases the student's device lock so they can log in again.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.UserID); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// OperatorLogin godoc
// POST /api/v1/operator/auth/login
func (h *AuthHandler) OperatorLogin(c *gin.Context) {
	var req model.OperatorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, op, err := h.authService.OperatorLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, model.OperatorLoginResponse{Token: token, Operator: *op})
}

// ResetStudentLogin godoc
// POST /api/v1/operator/students/:id/reset-login
// Lets a student log in again from a new device.
func (h *AuthHandler) ResetStudentLogin(c *gin.Context) {
	studentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		failService(c, h.log, err)
		return
	}

	h.log.Info().Int64("student_id", studentID).Msg("Student login reset")
	response.Success(c, http.StatusOK, gin.H{"message": "login reset"})
}
