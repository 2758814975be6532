// File: internal/domain/service/authorization.go
package service

import (
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
)

// Permission identifiers gating privileged operations. Handlers and middleware
// pass these to the Authorizer; role names never appear outside the policy.
const (
	// PermissionTokenIssue allows minting a new session chain on behalf of an
	// authenticated principal (the issuance endpoint).
	PermissionTokenIssue = "token:issue"
	// PermissionTokensCleanup allows triggering the on-demand expiry sweep.
	PermissionTokensCleanup = "tokens:cleanup"
	// PermissionAuditRead allows listing audit log records.
	PermissionAuditRead = "audit:read"
	// PermissionSessionsRevokeAny allows revoking sessions belonging to a
	// different user than the caller.
	PermissionSessionsRevokeAny = "sessions:revoke_any"
)

// permissionWildcard in a role's grant list matches every permission.
const permissionWildcard = "*"

// Authorizer decides whether a principal's role carries a named permission.
// Unknown roles and unknown permissions are denied.
type Authorizer interface {
	Can(role string, permission string) bool
}

type roleGrantAuthorizer struct {
	grants map[string]map[string]struct{}
	logger *zap.Logger
}

// NewRoleGrantAuthorizer builds an Authorizer from the configured role-to-grant
// mapping. The mapping is copied at construction; later config mutation does
// not affect decisions.
func NewRoleGrantAuthorizer(cfg config.AuthorizationConfig, logger *zap.Logger) Authorizer {
	grants := make(map[string]map[string]struct{}, len(cfg.RoleGrants))
	for role, permissions := range cfg.RoleGrants {
		set := make(map[string]struct{}, len(permissions))
		for _, p := range permissions {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &roleGrantAuthorizer{
		grants: grants,
		logger: logger.Named("authorizer"),
	}
}

func (a *roleGrantAuthorizer) Can(role string, permission string) bool {
	if permission == "" {
		return false
	}
	set, ok := a.grants[role]
	if !ok {
		a.logger.Debug("Role has no grants", zap.String("role", role), zap.String("permission", permission))
		return false
	}
	if _, ok := set[permissionWildcard]; ok {
		return true
	}
	if _, ok := set[permission]; ok {
		return true
	}
	a.logger.Debug("Permission denied by policy", zap.String("role", role), zap.String("permission", permission))
	return false
}

var _ Authorizer = (*roleGrantAuthorizer)(nil)
