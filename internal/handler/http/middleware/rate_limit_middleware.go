// File: internal/handler/http/middleware/rate_limit_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/service"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// RateLimitMiddleware applies a fixed-window limit keyed by client IP.
// Limiter errors fail open: an unreachable limiter never blocks the request.
func RateLimitMiddleware(limiter service.RateLimiter, keyPrefix string, rule config.RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rule.Enabled {
			c.Next()
			return
		}

		key := keyPrefix + c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logger.Error("Rate limiter failed, allowing request", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimitExceededTotal.Inc()
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", rule.Limit),
				zap.Duration("window", rule.Window),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "RATE_LIMITED",
			})
			return
		}

		c.Next()
	}
}
