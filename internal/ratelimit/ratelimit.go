package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter implements a fixed-window counter in Redis so limits hold
// across replicas.
type Limiter struct {
	redis *redis.Client
}

func NewLimiter(redisURL string) (*Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Limiter{redis: client}, nil
}

func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now().Unix()
	windowKey := fmt.Sprintf("%s:%d", key, now/int64(window.Seconds()))

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

func (l *Limiter) Ping(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

func (l *Limiter) Close() error {
	return l.redis.Close()
}
