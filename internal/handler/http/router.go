// File: internal/handler/http/router.go
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/repository"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	"github.com/gameplatform/session-service/internal/handler/http/middleware"
	"github.com/gameplatform/session-service/internal/service"
	appValidator "github.com/gameplatform/session-service/internal/utils/validator"
)

// SetupRouter wires the HTTP surface: middleware chain, public endpoints,
// authenticated session management and the policy-gated admin group.
func SetupRouter(
	sessionService *service.SessionService,
	rotationService *service.RotationService,
	revocationService *service.RevocationService,
	cleanupService *service.CleanupService,
	auditRepo repository.AuditLogRepository,
	codec domainService.TokenCodec,
	authorizer domainService.Authorizer,
	rateLimiter domainService.RateLimiter,
	healthHandler *HealthHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	// The binding engine shares the custom rules with the standalone validator.
	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = engine.RegisterValidation("revoke_reason", appValidator.RevokeReason)
	}

	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware())
	router.Use(middleware.MetricsMiddleware())
	if cfg.Telemetry.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName))
	}

	tokenHandler := NewTokenHandler(logger, sessionService, rotationService, codec)
	sessionHandler := NewSessionHandler(logger, sessionService, revocationService, authorizer)
	adminHandler := NewAdminHandler(logger, cleanupService, revocationService, auditRepo)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler.Check)
	router.GET("/readiness", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/.well-known/jwks.json", tokenHandler.GetJWKS)

	authRequired := middleware.AuthMiddleware(codec, logger)

	api := router.Group("/api/v1")
	{
		tokens := api.Group("/tokens")
		{
			// Refresh authenticates by the secret itself; the only transport
			// protection is the per-IP limit.
			tokens.POST("/refresh",
				middleware.RateLimitMiddleware(rateLimiter, "ratelimit:refresh:ip:", cfg.Security.RateLimiting.RefreshIP, logger),
				tokenHandler.Refresh)

			tokens.POST("",
				authRequired,
				middleware.RequirePermission(authorizer, domainService.PermissionTokenIssue, logger),
				tokenHandler.Issue)
		}

		sessions := api.Group("/sessions")
		sessions.Use(authRequired)
		{
			sessions.GET("", sessionHandler.ListMySessions)
			sessions.POST("/revoke", sessionHandler.RevokeToken)
			sessions.POST("/revoke-all", sessionHandler.RevokeAll)
		}

		admin := api.Group("/admin")
		admin.Use(authRequired)
		{
			admin.POST("/cleanup",
				middleware.RequirePermission(authorizer, domainService.PermissionTokensCleanup, logger),
				adminHandler.TriggerCleanup)
			admin.GET("/audit-logs",
				middleware.RequirePermission(authorizer, domainService.PermissionAuditRead, logger),
				adminHandler.ListAuditLogs)
			admin.POST("/users/:user_id/revoke-tokens",
				middleware.RequirePermission(authorizer, domainService.PermissionSessionsRevokeAny, logger),
				adminHandler.RevokeUserTokens)
		}
	}

	return router
}
