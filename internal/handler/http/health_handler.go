// File: internal/handler/http/health_handler.go
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/domain/models"
)

const healthCheckTimeout = 5 * time.Second

// Pinger reports reachability of one dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler probes the service's dependencies. The store being down makes
// the service degraded, not dead: /health keeps answering so orchestrators
// see the difference between unreachable and unhealthy.
type HealthHandler struct {
	logger   *zap.Logger
	postgres Pinger
	redis    Pinger
}

// NewHealthHandler creates a new HealthHandler. Either pinger may be nil when
// the dependency is not configured.
func NewHealthHandler(postgres Pinger, redis Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:   logger.Named("health_handler"),
		postgres: postgres,
		redis:    redis,
	}
}

// Check answers the health probe.
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{}
	degraded := false

	check := func(name string, pinger Pinger) {
		if pinger == nil {
			return
		}
		if err := pinger.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("component", name), zap.Error(err))
			components[name] = "unreachable"
			degraded = true
			return
		}
		components[name] = "ok"
	}
	check("postgres", h.postgres)
	check("redis", h.redis)

	resp := models.HealthResponse{Status: "ok", Components: components}
	statusCode := http.StatusOK
	if degraded {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, resp)
}
