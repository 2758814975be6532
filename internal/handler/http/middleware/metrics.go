// File: internal/handler/http/middleware/metrics.go
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// MetricsMiddleware records request counters and latency histograms.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RequestsTotal.Inc()

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		statusCode := strconv.Itoa(c.Writer.Status())
		metrics.ResponsesTotal.WithLabelValues(statusCode).Inc()

		metrics.RequestDuration.Observe(duration)
		metrics.RequestDurationByPath.WithLabelValues(c.Request.Method, c.FullPath()).Observe(duration)
	}
}
