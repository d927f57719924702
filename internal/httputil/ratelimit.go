// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestDelay keeps requests under the anonymous E-utilities
	// ceiling of 3 requests per second.
	DefaultRequestDelay = 340 * time.Millisecond

	// KeyedRequestDelay applies when an NCBI API key is configured
	// (10 requests per second).
	KeyedRequestDelay = 100 * time.Millisecond
)

// Waiter gates outbound requests. Client calls Wait before every attempt.
type Waiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter enforces a minimum interval between consecutive permitted
// calls. The first call is never delayed. A RateLimiter is owned by one
// pipeline; separate pipelines get separate limiters.
type RateLimiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewRateLimiter returns a limiter that spaces calls at least delay apart.
// A non-positive delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	if delay <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		delay:   delay,
	}
}

// Wait blocks until the next call is permitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Delay returns the configured minimum interval.
func (r *RateLimiter) Delay() time.Duration { return r.delay }

// RequestDelay picks the interval for the given settings: an explicit
// delay wins, otherwise the API key decides between the two NCBI ceilings.
func RequestDelay(explicit time.Duration, apiKey string) time.Duration {
	switch {
	case explicit > 0:
		return explicit
	case apiKey != "":
		return KeyedRequestDelay
	default:
		return DefaultRequestDelay
	}
}
