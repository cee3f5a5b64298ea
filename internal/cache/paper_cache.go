// Package cache keeps read-mostly exam data in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QuestionSource loads a drive's questions from the system of record.
type QuestionSource interface {
	ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error)
}

// PaperCache caches a drive's full question paper. Questions are immutable
// once a drive is approved, which is the only time students read them.
type PaperCache struct {
	rdb    *redis.Client
	source QuestionSource
	ttl    time.Duration
	log    zerolog.Logger
}

func NewPaperCache(rdb *redis.Client, source QuestionSource, ttl time.Duration, log zerolog.Logger) *PaperCache {
	return &PaperCache{
		rdb:    rdb,
		source: source,
		ttl:    ttl,
		log:    log.With().Str("component", "paper_cache").Logger(),
	}
}

// ListQuestions returns the cached paper, loading it from the source on a miss.
// Redis failures fall back to the source.
func (c *PaperCache) ListQuestions(ctx context.Context, driveID int64) ([]model.Question, error) {
	key := config.CacheKey.DrivePaperKey(driveID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var questions []model.Question
		if jsonErr := json.Unmarshal(raw, &questions); jsonErr == nil {
			return questions, nil
		}
		c.log.Warn().Int64("drive_id", driveID).Msg("Discarding malformed cached paper")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Int64("drive_id", driveID).Msg("Paper cache read failed, using database")
	}

	questions, err := c.source.ListQuestions(ctx, driveID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	data, err := json.Marshal(questions)
	if err != nil {
		return questions, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("drive_id", driveID).Msg("Paper cache write failed")
	}
	return questions, nil
}

// Invalidate drops the cached paper of a drive.
func (c *PaperCache) Invalidate(ctx context.Context, driveID int64) error {
	return c.rdb.Del(ctx, config.CacheKey.DrivePaperKey(driveID)).Err()
}
