// File: internal/domain/repository/audit_log_repository.go
package repository

import (
	"context"

	"github.com/gameplatform/session-service/internal/domain/models"
)

// AuditLogRepository defines the interface for interacting with audit log data.
type AuditLogRepository interface {
	// Create persists a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLog) error

	// FindByID retrieves an audit log entry by its unique ID.
	// Returns domainErrors.ErrNotFound if not found.
	FindByID(ctx context.Context, id int64) (*models.AuditLog, error)

	// List retrieves audit log entries with pagination and filtering.
	// Returns the matching page and the total count of matching records.
	List(ctx context.Context, params models.ListAuditLogParams) ([]*models.AuditLog, int, error)
}
