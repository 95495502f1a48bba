package ratelimit

import (
	"context"
	"strconv"
	"time"

	"telegram_rps/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window per-actor rate limiter on Redis INCR/EXPIRE.
// A nil Limiter, or one whose Redis is unreachable, fails open: every
// action is allowed so a Redis outage never stalls game progression.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// New connects the shared Redis client. Returns nil when addr is empty or
// the initial ping fails, which callers treat as "no limiting".
func New(addr, password string, db, maxActions int, window time.Duration) *Limiter {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, action rate limiting disabled", "error", err)
		return nil
	}

	logger.Info("redis rate limiter connected", "addr", addr)
	return &Limiter{client: client, max: maxActions, window: window}
}

// Allow reports whether actorID may perform another action in the current
// window. key format: rl:<window_seconds>:<actor_id>
func (l *Limiter) Allow(ctx context.Context, actorID int64) bool {
	if l == nil || l.client == nil {
		return true
	}

	key := "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + strconv.FormatInt(actorID, 10)

	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		// fail-open on Redis errors
		return true
	}
	if val == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	return val <= int64(l.max)
}

// Close releases the Redis connection.
func (l *Limiter) Close() {
	if l != nil && l.client != nil {
		_ = l.client.Close()
	}
}
