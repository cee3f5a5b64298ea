package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
)

// AuditCounter reports audited violations per student of a drive.
type AuditCounter interface {
	CountByDrive(ctx context.Context, driveID int64) (map[int64]int64, error)
}

// MonitorHandler streams a drive's live activity to operators over SSE.
type MonitorHandler struct {
	rdb           *redis.Client
	resultService *service.ResultService
	audit         AuditCounter
	log           zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, resultService *service.ResultService, audit AuditCounter, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:           rdb,
		resultService: resultService,
		audit:         audit,
		log:           log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorDriveSSE godoc
// GET /api/v1/operator/drives/:id/monitor
// Sends one snapshot of the drive's results, then forwards every event
// published on the drive's channel until the client disconnects.
func (h *MonitorHandler) MonitorDriveSSE(c *gin.Context) {
	driveID, ok := paramID(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	snapCtx, cancel := context.WithTimeout(reqCtx, snapshotTimeout)
	defer cancel()
	snapshot, err := h.resultService.List(snapCtx, driveID, nil)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	// Audit rows lag the live counters by up to one worker batch.
	audited, err := h.audit.CountByDrive(snapCtx, driveID)
	if err != nil {
		h.log.Warn().Err(err).Int64("drive_id", driveID).Msg("Failed to count audited violations")
		audited = map[int64]int64{}
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{
		"type":               "snapshot",
		"data":               snapshot,
		"audited_violations": audited,
	})
	c.Writer.Flush()

	pubsub := events.Subscribe(reqCtx, h.rdb, driveID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Int64("drive_id", driveID).Msg("Operator attached to live monitor")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int64("drive_id", driveID).Msg("Operator detached from live monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already JSON-encoded events.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}
