package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in a shared Redis.
const KeyPrefix = "ratelimit:"

// Redis is a fixed-window limiter backed by INCR + EXPIRE, so every instance
// of the service counts against the same window.
type Redis struct {
	client   *goredis.Client
	requests int64
	window   time.Duration
}

// NewRedis creates a limiter allowing requests per window for every key.
func NewRedis(client *goredis.Client, requests int, window time.Duration) *Redis {
	if requests < 1 {
		requests = 1
	}
	return &Redis{
		client:   client,
		requests: int64(requests),
		window:   window,
	}
}

// Allow implements Limiter.
func (l *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.client == nil {
		return false, 0, errors.New("ratelimit: redis client is nil")
	}
	if key == "" {
		return false, 0, errors.New("ratelimit: key is required")
	}
	key = KeyPrefix + key

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: increment window: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ratelimit: set window ttl: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: read window ttl: %w", err)
	}
	if ttl < 0 {
		// The key lost its TTL (a crash between INCR and EXPIRE); without this
		// the window would never close.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ratelimit: repair window ttl: %w", err)
		}
		ttl = l.window
	}

	if count > l.requests {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Ping reports whether Redis is reachable.
func (l *Redis) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
