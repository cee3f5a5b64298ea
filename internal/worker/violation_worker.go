package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventSink stores violation audit rows.
type EventSink interface {
	BulkInsert(ctx context.Context, events []model.ViolationEvent) error
	Insert(ctx context.Context, e *model.ViolationEvent) error
}

// ViolationWorker drains the violation queue into the audit table in batches.
type ViolationWorker struct {
	sink  EventSink
	rdb   *redis.Client
	queue string
	log   zerolog.Logger
}

func NewViolationWorker(sink EventSink, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		sink:  sink,
		rdb:   rdb,
		queue: config.WorkerKey.PersistViolationsQueue,
		log:   log.With().Str("component", "violation_worker").Logger(),
	}
}

// decodeEvent turns a queued monitor event into an audit row.
func decodeEvent(raw string) (model.ViolationEvent, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return model.ViolationEvent{}, err
	}
	if !ev.Audited() {
		return model.ViolationEvent{}, errors.New("event type is not audited: " + string(ev.Type))
	}
	return model.ViolationEvent{
		DriveID:       ev.DriveID,
		StudentID:     ev.StudentID,
		ViolationType: ev.ViolationType,
		Disqualified:  ev.Type == events.TypeDisqualified,
		Reason:        ev.Reason,
		Counts:        ev.Counts,
		OccurredAt:    ev.At,
	}, nil
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]model.ViolationEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		ev, err := decodeEvent(result[1])
		if err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed violation event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []model.ViolationEvent) {
	if err := w.sink.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Flushed violation events")
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []model.ViolationEvent) {
	var failed []model.ViolationEvent
	for i := range batch {
		if err := w.sink.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).
				Int64("drive_id", batch[i].DriveID).
				Int64("student_id", batch[i].StudentID).
				Msg("Insert failed, requeueing")
			failed = append(failed, batch[i])
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []model.ViolationEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		ev := events.Event{
			Type:          events.TypeViolation,
			DriveID:       e.DriveID,
			StudentID:     e.StudentID,
			ViolationType: e.ViolationType,
			Reason:        e.Reason,
			Counts:        e.Counts,
			At:            e.OccurredAt,
		}
		if e.Disqualified {
			ev.Type = events.TypeDisqualified
		}
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, w.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue violation events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed violation events")
	// Back off so a database outage does not spin the loop.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []model.ViolationEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
