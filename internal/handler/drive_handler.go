package handler

import (
	"context"
	"net/http"

	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/examdrive/examdrive-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PaperInvalidator drops a drive's cached question paper.
type PaperInvalidator interface {
	Invalidate(ctx context.Context, driveID int64) error
}

// DriveHandler handles drive authoring and window control for operators.
type DriveHandler struct {
	driveService  *service.DriveService
	windowService *service.WindowService
	papers        PaperInvalidator
	log           zerolog.Logger
}

// NewDriveHandler creates a new DriveHandler. papers may be nil.
func NewDriveHandler(
	driveService *service.DriveService,
	windowService *service.WindowService,
	papers PaperInvalidator,
	log zerolog.Logger,
) *DriveHandler {
	return &DriveHandler{
		driveService:  driveService,
		windowService: windowService,
		papers:        papers,
		log:           log.With().Str("component", "drive_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/operator/drives
func (h *DriveHandler) Create(c *gin.Context) {
	var req model.CreateDriveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	d, err := h.driveService.Create(c.Request.Context(), &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

// Get godoc
// GET /api/v1/operator/drives/:id
func (h *DriveHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.driveService.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// AddQuestions godoc
// POST /api/v1/operator/drives/:id/questions
func (h *DriveHandler) AddQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.AddQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.driveService.AddQuestions(c.Request.Context(), id, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if h.papers != nil {
		if err := h.papers.Invalidate(c.Request.Context(), id); err != nil {
			h.log.Warn().Err(err).Int64("drive_id", id).Msg("Failed to invalidate paper cache")
		}
	}
	response.Success(c, http.StatusCreated, questions)
}

// AddStudents godoc
// POST /api/v1/operator/drives/:id/students
func (h *DriveHandler) AddStudents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.AddStudentsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	students, err := h.driveService.AddStudents(c.Request.Context(), id, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, model.NewRosterEntries(students))
}

// Submit godoc
// POST /api/v1/operator/drives/:id/submit
func (h *DriveHandler) Submit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.driveService.Submit(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// Review godoc
// POST /api/v1/operator/drives/:id/review
func (h *DriveHandler) Review(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ReviewDriveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	d, err := h.driveService.Review(c.Request.Context(), id, *req.Approve, req.AdminNotes)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// Status godoc
// GET /api/v1/operator/drives/:id/status
func (h *DriveHandler) Status(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	status, err := h.windowService.Status(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"drive_id": id, "status": status})
}

// WindowStatus godoc
// GET /api/v1/operator/drives/:id/window
func (h *DriveHandler) WindowStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	report, err := h.windowService.WindowStatus(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// OpenWindow godoc
// POST /api/v1/operator/drives/:id/window/open
func (h *DriveHandler) OpenWindow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.windowService.Activate(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// CloseWindow godoc
// POST /api/v1/operator/drives/:id/window/close
func (h *DriveHandler) CloseWindow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.windowService.ForceEnd(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Suspend godoc
// POST /api/v1/operator/drives/:id/suspend
func (h *DriveHandler) Suspend(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.windowService.Suspend(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Reactivate godoc
// POST /api/v1/operator/drives/:id/reactivate
func (h *DriveHandler) Reactivate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.windowService.Reactivate(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}
