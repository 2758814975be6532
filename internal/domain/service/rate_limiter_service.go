// File: internal/domain/service/rate_limiter_service.go
package service

import (
	"context"
	"time"
)

// RateLimiter defines the interface for a rate limiting service.
type RateLimiter interface {
	// Allow increments the counter for key and reports whether the action is
	// still inside the limit for the window. Implementations fail open on
	// infrastructure errors so an unavailable limiter never blocks refreshes.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Check returns the current count for a key without incrementing.
	Check(ctx context.Context, key string) (int, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
