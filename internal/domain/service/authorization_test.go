// File: internal/domain/service/authorization_test.go
package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
)

func newTestAuthorizer() Authorizer {
	cfg := config.AuthorizationConfig{
		RoleGrants: map[string][]string{
			"admin":   {PermissionTokensCleanup, PermissionAuditRead, PermissionSessionsRevokeAny},
			"service": {PermissionTokenIssue},
			"root":    {"*"},
		},
	}
	return NewRoleGrantAuthorizer(cfg, zap.NewNop())
}

func TestRoleGrantAuthorizer_Can(t *testing.T) {
	authz := newTestAuthorizer()

	testCases := []struct {
		name       string
		role       string
		permission string
		want       bool
	}{
		{"AdminCanCleanup", "admin", PermissionTokensCleanup, true},
		{"AdminCanReadAudit", "admin", PermissionAuditRead, true},
		{"AdminCannotIssue", "admin", PermissionTokenIssue, false},
		{"ServiceCanIssue", "service", PermissionTokenIssue, true},
		{"ServiceCannotCleanup", "service", PermissionTokensCleanup, false},
		{"WildcardGrantsEverything", "root", PermissionAuditRead, true},
		{"WildcardGrantsUnlistedPermission", "root", "something:else", true},
		{"UnknownRoleDenied", "player", PermissionTokensCleanup, false},
		{"EmptyRoleDenied", "", PermissionTokensCleanup, false},
		{"EmptyPermissionDenied", "root", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, authz.Can(tc.role, tc.permission))
		})
	}
}

func TestRoleGrantAuthorizer_CopiesGrantsAtConstruction(t *testing.T) {
	grants := map[string][]string{"admin": {PermissionAuditRead}}
	authz := NewRoleGrantAuthorizer(config.AuthorizationConfig{RoleGrants: grants}, zap.NewNop())

	grants["admin"] = nil
	delete(grants, "admin")

	assert.True(t, authz.Can("admin", PermissionAuditRead))
}

func TestRoleGrantAuthorizer_EmptyConfigDeniesAll(t *testing.T) {
	authz := NewRoleGrantAuthorizer(config.AuthorizationConfig{}, zap.NewNop())

	assert.False(t, authz.Can("admin", PermissionTokensCleanup))
	assert.False(t, authz.Can("", ""))
}
