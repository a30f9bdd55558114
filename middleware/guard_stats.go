package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// GuardEvent is one edge guard decision.
type GuardEvent struct {
	Key     string
	Rule    string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// StatsRecorder persists guard decisions. Recording is best-effort: the guard never
// fails a request because of it.
type StatsRecorder interface {
	Record(ctx context.Context, ev GuardEvent) error
}

// RedisStats keeps running counters of guard decisions in Redis hashes:
// a cumulative total, one bucket per minute and one counter per route and rule.
type RedisStats struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStats(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStats {
	if prefix == "" {
		prefix = "ratelimit:stats"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStats{rdb: rdb, prefix: strings.Trim(prefix, ":"), ttl: ttl}
}

func (s *RedisStats) Record(ctx context.Context, ev GuardEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}
	if !ev.Allowed && ev.Rule != "" {
		pipe.HIncrBy(ctx, s.prefix+":rule", ev.Rule, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
