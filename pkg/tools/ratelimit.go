package tools

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter gates tool executions by tool name.
type RateLimiter interface {
	// Allow reports whether an execution may start now without waiting
	Allow(tool string) bool
	// Wait blocks until the execution is allowed or ctx is done
	Wait(ctx context.Context, tool string) error
}

// rateLimitReporter is implemented by limiters that can describe their state.
type rateLimitReporter interface {
	Info(tool string) *RateLimitInfo
}

// TokenBucketLimiter keeps an independent token bucket per tool name.
type TokenBucketLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewTokenBucketLimiter allows limit executions per second per tool with the
// given burst.
func NewTokenBucketLimiter(limit rate.Limit, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *TokenBucketLimiter) bucket(tool string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[tool]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tool] = lim
	}
	return lim
}

// Allow consumes a token if one is available.
func (l *TokenBucketLimiter) Allow(tool string) bool {
	return l.bucket(tool).Allow()
}

// Wait blocks for a token. It fails fast when ctx's deadline is too close
// for a token to become available.
func (l *TokenBucketLimiter) Wait(ctx context.Context, tool string) error {
	return l.bucket(tool).Wait(ctx)
}

// Info returns the bucket state for tool.
func (l *TokenBucketLimiter) Info(tool string) *RateLimitInfo {
	lim := l.bucket(tool)
	return &RateLimitInfo{
		Limit:     float64(lim.Limit()),
		Burst:     lim.Burst(),
		Remaining: lim.Tokens(),
	}
}
