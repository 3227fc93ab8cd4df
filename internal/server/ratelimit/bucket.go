// Package ratelimit throttles API clients with per-route token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds up to capacity tokens refilled at refillRate per second.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastUsed:   now,
	}
}

// take refills the bucket, consumes one token if available and reports the
// remaining tokens and the time at which the bucket will be full again.
func (b *tokenBucket) take(now time.Time) (allowed bool, remaining int, full time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.lastRefill = now
	}
	b.lastUsed = now

	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	}

	full = now
	if missing := b.capacity - b.tokens; missing > 0 && b.refillRate > 0 {
		full = now.Add(time.Duration(missing / b.refillRate * float64(time.Second)))
	}
	return allowed, int(b.tokens), full
}

// retryAfter is the wait until one token is available.
func (b *tokenBucket) retryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens >= 1 || b.refillRate <= 0 {
		return 0
	}
	return time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
}

func (b *tokenBucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}
