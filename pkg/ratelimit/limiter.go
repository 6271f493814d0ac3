package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to a full burst
	Reset()
}

// New returns a limiter for the given requests-per-minute budget.
// A non-positive rate yields a limiter that never blocks.
func New(requestsPerMinute, burst int) Limiter {
	if requestsPerMinute <= 0 {
		return NoLimit{}
	}
	return NewTokenBucket(requestsPerMinute, time.Minute, burst)
}

// TokenBucket spreads requests evenly over a period, allowing short bursts
type TokenBucket struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	limiter *rate.Limiter
}

// NewTokenBucket allows count requests per period with the given burst size
func NewTokenBucket(count int, period time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(float64(count) / period.Seconds())
	return &TokenBucket{
		limit:   limit,
		burst:   burst,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Allow checks if a request can proceed without waiting
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// NoLimit never blocks
type NoLimit struct{}

func (NoLimit) Allow() bool { return true }

func (NoLimit) Wait(ctx context.Context) error { return ctx.Err() }

func (NoLimit) Reset() {}
