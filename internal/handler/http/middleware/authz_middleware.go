// File: internal/handler/http/middleware/authz_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/service"
)

// RequirePermission gates a route on the authorization policy. It must run
// after AuthMiddleware; the decision is made against the role carried by the
// verified access token, never a role string from the request itself.
func RequirePermission(authorizer service.Authorizer, permission string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if !authorizer.Can(role, permission) {
			userID, _ := CurrentUserID(c)
			logger.Warn("Permission denied",
				zap.String("permission", permission),
				zap.String("role", role),
				zap.String("user_id", userID.String()),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  domainErrors.CodeInsufficientPerms,
			})
			return
		}
		c.Next()
	}
}
