// File: internal/handler/http/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/service"
)

const (
	AuthHeaderKey  = "Authorization"
	AuthTypeBearer = "Bearer"

	GinContextUserIDKey    = "userID"
	GinContextSessionIDKey = "sessionID"
	GinContextDeviceIDKey  = "deviceID"
	GinContextRoleKey      = "role"
	GinContextClaimsKey    = "claims"
)

// AuthMiddleware creates a gin.HandlerFunc validating the bearer access token.
// Verified claims are stored in the gin context; user and session identifiers
// are parsed to UUIDs here so downstream handlers never deal with raw claim
// strings.
func AuthMiddleware(codec service.TokenCodec, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			logger.Warn("AuthMiddleware: Authorization header missing", zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], AuthTypeBearer) {
			logger.Warn("AuthMiddleware: Authorization header format must be Bearer <token>")
			abortUnauthorized(c, "Authorization header format must be Bearer <token>")
			return
		}

		claims, err := codec.ValidateAccessToken(parts[1])
		if err != nil {
			logger.Warn("AuthMiddleware: Invalid access token", zap.Error(err))
			msg := "Invalid or expired token"
			if errors.Is(err, domainErrors.ErrTokenExpired) {
				msg = "Token has expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			logger.Warn("AuthMiddleware: Malformed user id claim", zap.String("raw", claims.UserID))
			abortUnauthorized(c, "Invalid token claims")
			return
		}
		sessionID, err := uuid.Parse(claims.SessionID)
		if err != nil {
			logger.Warn("AuthMiddleware: Malformed session id claim", zap.String("raw", claims.SessionID))
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		c.Set(GinContextClaimsKey, claims)
		c.Set(GinContextUserIDKey, userID)
		c.Set(GinContextSessionIDKey, sessionID)
		c.Set(GinContextDeviceIDKey, claims.DeviceID)
		c.Set(GinContextRoleKey, claims.Role)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"code":  domainErrors.CodeUnauthorized,
	})
}

// CurrentUserID returns the authenticated user's id from the gin context.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(GinContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// CurrentSessionID returns the authenticated session's id from the gin context.
func CurrentSessionID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(GinContextSessionIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// CurrentRole returns the authenticated principal's role. Empty when the
// request is unauthenticated or the token carries no role.
func CurrentRole(c *gin.Context) string {
	value, exists := c.Get(GinContextRoleKey)
	if !exists {
		return ""
	}
	role, _ := value.(string)
	return role
}
