package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/landedcost/internal/config"
	"go.uber.org/zap"
)

const keyRecalculate = "ratelimit:recalculate:%s"

// RecalculationLimiter throttles bulk recalculation requests per caller.
type RecalculationLimiter struct {
	bucket *TokenBucket
	prefix string
	rate   float64
	burst  int
}

// NewRecalculationLimiter returns nil when redis is not configured or the
// limit is disabled, in which case every request is allowed.
func NewRecalculationLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *RecalculationLimiter {
	if client == nil || cfg.RecalculateRatePerMinute <= 0 || cfg.RecalculateBurst <= 0 {
		log.Info("recalculation rate limit disabled")
		return nil
	}
	log.Info("recalculation rate limit enabled",
		zap.Float64("per_minute", cfg.RecalculateRatePerMinute),
		zap.Int("burst", cfg.RecalculateBurst),
	)
	return &RecalculationLimiter{
		bucket: NewTokenBucket(client),
		prefix: cfg.AppName + ":",
		rate:   cfg.RecalculateRatePerMinute / 60,
		burst:  cfg.RecalculateBurst,
	}
}

func (l *RecalculationLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *RecalculationLimiter) Allow(ctx context.Context, caller string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		caller = "anonymous"
	}
	return l.bucket.Allow(ctx, l.prefix+fmt.Sprintf(keyRecalculate, caller), l.rate, l.burst)
}
