// Package events fans drive activity out to live monitors and to the
// violation audit queue through Redis.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Type names an event on a drive's monitor channel.
type Type string

const (
	TypeWindowOpened   Type = "window_opened"
	TypeWindowClosed   Type = "window_closed"
	TypeDriveSuspended Type = "drive_suspended"
	TypeSessionStarted Type = "session_started"
	TypeViolation      Type = "violation"
	TypeDisqualified   Type = "disqualified"
	TypeSubmitted      Type = "submitted"
)

// Event is the payload published for every observable change of a drive.
type Event struct {
	Type            Type                   `json:"type"`
	DriveID         int64                  `json:"drive_id"`
	StudentID       int64                  `json:"student_id,omitempty"`
	ViolationType   model.ViolationKind    `json:"violation_type,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	Counts          *model.ViolationCounts `json:"violation_details,omitempty"`
	TotalViolations int                    `json:"total_violations,omitempty"`
	Count           int                    `json:"count,omitempty"`
	At              time.Time              `json:"at"`
}

// Audited reports whether the event belongs in the violation audit trail.
func (e Event) Audited() bool {
	return e.Type == TypeViolation || e.Type == TypeDisqualified
}

// Publisher delivers events. Delivery is best effort and never fails the
// operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// RedisPublisher publishes to the drive monitor channel and, for audited
// events, appends to the persistence queue drained by the violation worker.
type RedisPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisPublisher(rdb *redis.Client, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to encode event")
		return
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.DriveMonitorChannel(ev.DriveID), data)
	if ev.Audited() {
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().Err(err).
			Int64("drive_id", ev.DriveID).
			Int64("student_id", ev.StudentID).
			Str("type", string(ev.Type)).
			Msg("Failed to publish event")
	}
}

// Subscribe attaches to a drive's monitor channel. The caller closes it.
func Subscribe(ctx context.Context, rdb *redis.Client, driveID int64) *redis.PubSub {
	return rdb.Subscribe(ctx, config.CacheKey.DriveMonitorChannel(driveID))
}
