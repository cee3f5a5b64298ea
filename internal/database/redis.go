package database

import (
	"context"
	"fmt"
	"time"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisClientName = "examdrive"

// NewRedisClient connects to Redis. Student logins, the paper cache, the
// drive event channels and the violation queue all share this client.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = redisClientName
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 2
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Int("pool_size", opt.PoolSize).Msg("Redis ready")
	return rdb, nil
}
