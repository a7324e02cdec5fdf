package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, 4*time.Second, defaultBucketTTL(1, 2))
	assert.Equal(t, 12*time.Second, defaultBucketTTL(0.5, 3))
}

func TestNewResult(t *testing.T) {
	allowed := newResult(true, 1.5, 1_700_000_000_000, 0.5, 2)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 1, allowed.Remaining)
	assert.Equal(t, 2, allowed.Limit)
	assert.Zero(t, allowed.RetryAfter)

	denied := newResult(false, 0.25, 1_700_000_000_000, 0.5, 2)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 1500*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).Add(1500*time.Millisecond), denied.ResetTime)
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt("2.75"))
	assert.Equal(t, int64(0), castToInt(nil))
	assert.Equal(t, 0.75, castToFloat("0.75"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
	assert.Equal(t, 0.0, castToFloat("nope"))
}

func TestTokenBucketRequiresClient(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, res.Allowed)
	assert.Nil(t, NewTokenBucket(nil))
}

func TestRecalculationLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewRecalculationLimiter(config.Config{RecalculateRatePerMinute: 2, RecalculateBurst: 2}, nil, zap.NewNop())
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
