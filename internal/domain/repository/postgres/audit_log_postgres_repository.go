// File: internal/domain/repository/postgres/audit_log_postgres_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
)

// AuditLogRepositoryPostgres implements repository.AuditLogRepository for PostgreSQL.
type AuditLogRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepositoryPostgres creates a new instance.
func NewAuditLogRepositoryPostgres(pool *pgxpool.Pool) *AuditLogRepositoryPostgres {
	return &AuditLogRepositoryPostgres{pool: pool}
}

// Create persists a new audit log entry. id and created_at come from the
// database.
func (r *AuditLogRepositoryPostgres) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor_id, action, target_type, target_id, ip_address, user_agent, status, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID,
		entry.IPAddress, entry.UserAgent, entry.Status, entry.Details,
	)
	if err != nil {
		return wrapStoreErr("failed to create audit log", err)
	}
	return nil
}

// FindByID retrieves an audit log entry by its ID.
func (r *AuditLogRepositoryPostgres) FindByID(ctx context.Context, id int64) (*models.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, ip_address, user_agent, status, details, created_at
		FROM audit_logs
		WHERE id = $1
	`
	entry := &models.AuditLog{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID,
		&entry.IPAddress, &entry.UserAgent, &entry.Status, &entry.Details, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to find audit log by ID", err)
	}
	return entry, nil
}

// List retrieves audit log entries based on the given filters.
func (r *AuditLogRepositoryPostgres) List(ctx context.Context, params models.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	var logs []*models.AuditLog
	var totalCount int

	baseQuery := `SELECT id, actor_id, action, target_type, target_id, ip_address, user_agent, status, details, created_at FROM audit_logs`
	countQuery := `SELECT COUNT(*) FROM audit_logs`

	conditions := []string{}
	args := []interface{}{}
	argCount := 1

	addCondition := func(condition string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(condition, argCount))
		args = append(args, value)
		argCount++
	}

	if params.ActorID != nil {
		addCondition("actor_id = $%d", *params.ActorID)
	}
	if params.Action != nil {
		addCondition("action = $%d", *params.Action)
	}
	if params.TargetID != nil {
		addCondition("target_id = $%d", *params.TargetID)
	}
	if params.Status != nil {
		addCondition("status = $%d", *params.Status)
	}
	if params.From != nil {
		addCondition("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		addCondition("created_at <= $%d", *params.To)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	err := r.pool.QueryRow(ctx, countQuery+whereClause, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, wrapStoreErr("failed to count audit logs", err)
	}
	if totalCount == 0 {
		return logs, 0, nil
	}

	queryFull := baseQuery + whereClause

	// SortBy is matched against an allow list; user input never reaches the
	// ORDER BY clause directly.
	orderBy := "created_at"
	switch params.SortBy {
	case "actor_id", "action", "status":
		orderBy = params.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "ASC") {
		sortOrder = "ASC"
	}
	queryFull += fmt.Sprintf(" ORDER BY %s %s", orderBy, sortOrder)

	if params.PageSize > 0 {
		queryFull += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, params.PageSize)
		argCount++
		if params.Page > 1 {
			queryFull += fmt.Sprintf(" OFFSET $%d", argCount)
			args = append(args, (params.Page-1)*params.PageSize)
		}
	}

	rows, err := r.pool.Query(ctx, queryFull, args...)
	if err != nil {
		return nil, 0, wrapStoreErr("failed to list audit logs", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &models.AuditLog{}
		errScan := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID,
			&entry.IPAddress, &entry.UserAgent, &entry.Status, &entry.Details, &entry.CreatedAt,
		)
		if errScan != nil {
			return nil, 0, wrapStoreErr("failed to scan audit log row", errScan)
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, wrapStoreErr("failed to iterate audit log rows", err)
	}
	return logs, totalCount, nil
}

var _ repository.AuditLogRepository = (*AuditLogRepositoryPostgres)(nil)
