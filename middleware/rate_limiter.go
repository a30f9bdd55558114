package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-key token bucket. Each key starts with capacity tokens and
// regains refill tokens every interval.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(refill int, interval time.Duration, capacity int) *RateLimiter {
	if refill <= 0 {
		refill = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	if capacity <= 0 {
		capacity = refill
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(interval / time.Duration(refill)),
		burst:   capacity,
		idleTTL: 15 * time.Minute,
	}
}

// Allow takes one token for key. When the bucket is empty it returns false together
// with the time until the next token is available; nothing is consumed in that case.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	return rl.allowAt(key, time.Now())
}

func (rl *RateLimiter) allowAt(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// StartJanitor evicts idle buckets every minute until ctx is cancelled.
func (rl *RateLimiter) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
