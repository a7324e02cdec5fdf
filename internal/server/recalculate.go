package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/landedcost/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) Recalculate(c *gin.Context) {
	resp, err := s.recalculationSvc.RecalculateAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RecalculateRateLimit throttles bulk recalculation per client address.
func (s *Server) RecalculateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.recalcLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.recalcLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("recalculation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("recalculation rate limit exceeded", zap.Duration("retry_after", res.RetryAfter))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}
