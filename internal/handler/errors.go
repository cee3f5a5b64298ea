package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// failService writes the response for an error returned by a service.
// Domain errors keep their reason code and carry the observed drive and
// session state; anything else is logged and reported as internal.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	de, ok := service.AsDomainError(err)
	if !ok {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	status := http.StatusConflict
	switch de.Kind {
	case service.KindConfiguration:
		status = http.StatusUnprocessableEntity
	case service.KindNotFound:
		status = http.StatusNotFound
	}

	var fields map[string]string
	var se *service.StateError
	if errors.As(err, &se) {
		fields = make(map[string]string, 2)
		if se.SessionState != "" {
			fields["session_state"] = string(se.SessionState)
		}
		if se.DriveStatus != "" {
			fields["drive_status"] = string(se.DriveStatus)
		}
	}
	if de.Kind == service.KindConflict {
		c.Header("Retry-After", "1")
	}
	response.FailWithMessage(c, status, response.ErrCode(de.Code), de.Message, fields)
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
