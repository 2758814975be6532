// File: internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services, repositories and handlers.
var (
	// Generic.
	ErrInternal   = errors.New("internal server error")
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("invalid request")

	// Refresh flow. ErrRefreshFailed is the only denial ever surfaced to a
	// caller of the refresh operation; the variants below exist for the audit
	// channel and for internal branching.
	ErrRefreshFailed = errors.New("refresh failed")
	ErrTokenRotated  = errors.New("refresh token already rotated")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("token expired")

	// Codec.
	ErrTokenMalformed   = errors.New("token malformed")
	ErrInvalidSignature = errors.New("invalid token signature")

	// Store. ErrStatusConflict is internal to the store/engine boundary: a
	// compare-and-swap transition lost to a concurrent writer. It must never
	// reach a response body raw.
	ErrStatusConflict   = errors.New("status transition conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDuplicateValue   = errors.New("duplicate value violates unique constraint")

	// AuthN/AuthZ.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("insufficient permissions")
)

// API error codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeRefreshFailed     = "REFRESH_FAILED"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeInsufficientPerms = "INSUFFICIENT_PERMISSIONS"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError carries an error together with the message, HTTP status and API
// code a handler should respond with.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRefreshFailure reports whether err belongs to the unified refresh-denial
// family. All members map to the same external response.
func IsRefreshFailure(err error) bool {
	return errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrTokenRotated) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrInvalidSignature)
}

// IsStoreUnavailable reports whether err is a transient infrastructure
// failure the caller may retry, as opposed to a denial.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsConflict reports whether err is a lost compare-and-swap transition.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidation reports whether err is a malformed-input failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
