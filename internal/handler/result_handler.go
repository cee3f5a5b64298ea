package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/examdrive/examdrive-backend/internal/export"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ResultHandler serves drive results and their downloads.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/operator/drives/:id/results?min_percentage=
func (h *ResultHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var minPercentage *float64
	if raw := c.Query("min_percentage"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"min_percentage": "min_percentage must be a number between 0 and 100",
			})
			return
		}
		minPercentage = &v
	}

	results, err := h.resultService.List(c.Request.Context(), id, minPercentage)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// Export godoc
// GET /api/v1/operator/drives/:id/results/export?format=summary|detailed&type=csv|xlsx
func (h *ResultHandler) Export(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportSummary)))
	if format != service.ExportSummary && format != service.ExportDetailed {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFormat)
		return
	}
	typ, err := export.ParseType(c.DefaultQuery("type", string(export.TypeCSV)))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFormat)
		return
	}

	table, err := h.resultService.Export(c.Request.Context(), id, format)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	// Render fully before writing headers so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := table.Write(&buf, typ); err != nil {
		h.log.Error().Err(err).Int64("drive_id", id).Msg("Failed to render export")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+table.Filename(typ)+`"`)
	c.Data(http.StatusOK, typ.ContentType(), buf.Bytes())
}
