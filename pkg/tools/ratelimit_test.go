package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

func TestTokenBucketLimiter(t *testing.T) {
	limiter := tools.NewTokenBucketLimiter(rate.Every(time.Hour), 2)

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	// Buckets are per tool.
	assert.True(t, limiter.Allow("b"))

	info := limiter.Info("a")
	assert.Equal(t, 2, info.Burst)
	assert.InDelta(t, 0, info.Remaining, 0.01)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "a"))
}

func TestTokenBucketLimiterMinimumBurst(t *testing.T) {
	limiter := tools.NewTokenBucketLimiter(rate.Inf, 0)
	assert.Equal(t, 1, limiter.Info("x").Burst)
	assert.NoError(t, limiter.Wait(context.Background(), "x"))
}
