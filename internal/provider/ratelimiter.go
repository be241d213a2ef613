package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket guarding free-tier upstream APIs.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      int
	capacity    int
	refillEvery time.Duration
	lastRefill  time.Time
}

// NewRateLimiter allows capacity calls immediately, then one more per
// refillEvery.
func NewRateLimiter(capacity int, refillEvery time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:      capacity,
		capacity:    capacity,
		refillEvery: refillEvery,
		lastRefill:  time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.take() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.untilNextToken()):
		}
	}
}

func (r *RateLimiter) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked(time.Now())
	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

func (r *RateLimiter) untilNextToken() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := time.Until(r.lastRefill.Add(r.refillEvery))
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

func (r *RateLimiter) refillLocked(now time.Time) {
	n := int(now.Sub(r.lastRefill) / r.refillEvery)
	if n <= 0 {
		return
	}
	r.tokens += n
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.lastRefill = r.lastRefill.Add(time.Duration(n) * r.refillEvery)
}
