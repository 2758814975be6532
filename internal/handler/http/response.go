// File: internal/handler/http/response.go
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
)

// ResponseError is the error body of every non-2xx API response.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError sends an error response and logs it.
func RespondWithError(c *gin.Context, statusCode int, message string, errorCode string, logger *zap.Logger) {
	logger.Warn("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_message", message),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)

	c.JSON(statusCode, ResponseError{
		Error: message,
		Code:  errorCode,
	})
}

// RespondWithData sends a successful response with a JSON body.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithNoContent sends an empty 204 response.
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleDomainError maps a service-layer error onto the API error contract.
// Refresh denials collapse to one uniform 401 regardless of the underlying
// reason; the precise cause lives in the audit log only. Lost CAS conflicts
// never reach this point with their own code: anything unclassified is an
// internal error.
func HandleDomainError(c *gin.Context, err error, logger *zap.Logger) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		RespondWithError(c, appErr.StatusCode, appErr.Message, appErr.Code, logger)
		return
	}

	switch {
	case domainErrors.IsRefreshFailure(err):
		RespondWithError(c, http.StatusUnauthorized, "Refresh failed", domainErrors.CodeRefreshFailed, logger)
	case domainErrors.IsStoreUnavailable(err):
		RespondWithError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", domainErrors.CodeStoreUnavailable, logger)
	case domainErrors.IsValidation(err):
		RespondWithError(c, http.StatusBadRequest, "Invalid request", domainErrors.CodeValidation, logger)
	case domainErrors.IsForbidden(err):
		RespondWithError(c, http.StatusForbidden, "Insufficient permissions", domainErrors.CodeInsufficientPerms, logger)
	case errors.Is(err, domainErrors.ErrUnauthorized):
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, logger)
	case domainErrors.IsNotFound(err):
		RespondWithError(c, http.StatusNotFound, "Resource not found", domainErrors.CodeNotFound, logger)
	default:
		logger.Error("Unclassified domain error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		RespondWithError(c, http.StatusInternalServerError, "Internal server error", domainErrors.CodeInternal, logger)
	}
}
