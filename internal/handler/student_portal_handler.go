package handler

import (
	"net/http"

	"github.com/examdrive/examdrive-backend/internal/middleware"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/examdrive/examdrive-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StudentPortalHandler handles the student-facing exam endpoints.
type StudentPortalHandler struct {
	sessionService   *service.SessionService
	violationService *service.ViolationService
	log              zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.SessionService,
	violationService *service.ViolationService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService:   sessionService,
		violationService: violationService,
		log:              log.With().Str("component", "student_portal_handler").Logger(),
	}
}

func studentID(c *gin.Context) (int64, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	return claims.UserID, true
}

// GetDrive godoc
// GET /api/v1/student/drive
func (h *StudentPortalHandler) GetDrive(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	drive, err := h.sessionService.Drive(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, drive)
}

// GetState godoc
// GET /api/v1/student/state
// Covers page reloads: session state, deadline and remaining time.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	state, err := h.sessionService.State(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// StartExam godoc
// POST /api/v1/student/exam/start
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	res, err := h.sessionService.Start(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetQuestions godoc
// GET /api/v1/student/exam/questions
func (h *StudentPortalHandler) GetQuestions(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	paper, err := h.sessionService.Questions(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// RecordViolation godoc
// POST /api/v1/student/exam/violation
func (h *StudentPortalHandler) RecordViolation(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	tally, err := h.violationService.Record(c.Request.Context(), id, model.ViolationKind(req.ViolationType))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, tally)
}

// Disqualify godoc
// POST /api/v1/student/exam/disqualify
func (h *StudentPortalHandler) Disqualify(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req model.DisqualifyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.violationService.Disqualify(c.Request.Context(), id, model.ViolationKind(req.ViolationType), req.Reason)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// SubmitExam godoc
// POST /api/v1/student/exam/submit
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Submit(c.Request.Context(), id, req.Answers)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetResult godoc
// GET /api/v1/student/exam/result
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	res, err := h.sessionService.Result(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
