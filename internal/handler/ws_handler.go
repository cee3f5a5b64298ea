package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/middleware"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/response"
	"github.com/examdrive/examdrive-backend/internal/service"
	ws "github.com/examdrive/examdrive-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams proctoring violations from the exam client.
type WSHandler struct {
	violationService *service.ViolationService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(violationService *service.ViolationService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		violationService: violationService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// ViolationStream godoc
// WS /ws/v1/student/stream?token=
// Each message is handled exactly like the REST violation endpoints.
func (h *WSHandler) ViolationStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	studentID := claims.UserID
	wsLog := h.log.With().
		Int64("student_id", studentID).
		Int64("drive_id", claims.DriveID).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		msg, err := ws.ReadRequest(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionViolation:
			h.handleViolation(c.Request.Context(), conn, wsLog, studentID, &msg)
		case ws.ActionDisqualify:
			if h.handleDisqualify(c.Request.Context(), conn, wsLog, studentID, &msg) {
				return
			}
		case ws.ActionPing:
			ws.WriteEvent(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleViolation(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int64, msg *ws.Request) {
	tally, err := h.violationService.Record(ctx, studentID, model.ViolationKind(msg.ViolationType))
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteEvent(conn, ws.EventRecorded, tally)
}

// handleDisqualify reports whether the session is over.
func (h *WSHandler) handleDisqualify(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int64, msg *ws.Request) bool {
	if msg.Reason == "" {
		ws.WriteError(conn, string(response.ErrValidation), "reason is required")
		return false
	}
	res, err := h.violationService.Disqualify(ctx, studentID, model.ViolationKind(msg.ViolationType), msg.Reason)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return false
	}
	ws.WriteEvent(conn, ws.EventDisqualified, res)
	ws.Close(conn, websocket.CloseNormalClosure, "disqualified")
	return true
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	if de, ok := service.AsDomainError(err); ok {
		ws.WriteError(conn, de.Code, de.Message)
		return
	}
	wsLog.Error().Err(err).Msg("Violation stream failed")
	ws.WriteError(conn, string(response.ErrInternal), response.GetMessage(response.ErrInternal))
}
