package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

// TokenBucket is a cooperative per-upstream rate limiter: tokens refill
// continuously at rate/60_000 tokens per millisecond (requests-per-
// minute), and a waiter blocks for the computed refill delay while
// honoring context cancellation without consuming a token.
type TokenBucket struct {
	mu           sync.Mutex
	clock        timeutil.Clock
	capacity     float64
	tokens       float64
	refillPerMs  float64
	lastRefillAt time.Time
}

// NewTokenBucket creates a bucket for the given requests-per-minute
// rate, starting full.
func NewTokenBucket(clock timeutil.Clock, ratePerMinute int) *TokenBucket {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	capacity := float64(ratePerMinute)
	if capacity <= 0 {
		capacity = 1
	}
	return &TokenBucket{
		clock:        clock,
		capacity:     capacity,
		tokens:       capacity,
		refillPerMs:  capacity / 60000.0,
		lastRefillAt: clock.Now(),
	}
}

func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	elapsedMs := now.Sub(b.lastRefillAt).Seconds() * 1000
	if elapsedMs <= 0 {
		return
	}
	b.tokens += elapsedMs * b.refillPerMs
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefillAt = now
}

// Wait blocks until a token is available, or returns a rate-limited
// error wrapping ctx.Err() if the context is cancelled first — no
// token is consumed on cancellation.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		delayMs := deficit / b.refillPerMs
		b.mu.Unlock()

		delay := time.Duration(delayMs * float64(time.Millisecond))
		if delay <= 0 {
			delay = time.Millisecond
		}

		timer := b.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fusionerr.Wrap(fusionerr.KindRateLimited, "upstream.TokenBucket.Wait", "wait cancelled", ctx.Err())
		case <-timer.C():
		}
	}
}
