package security

import (
	"testing"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/stretchr/testify/assert"
)

func TestRequirePrivileged(t *testing.T) {
	as := NewAuthorizationService([]string{"su", " root "}, nil)

	assert.NoError(t, as.RequirePrivileged("su"))
	assert.NoError(t, as.RequirePrivileged("root"))

	err := as.RequirePrivileged("alice")
	assert.True(t, apperror.Is(err, apperror.Forbidden))
}

func TestRolePermissions(t *testing.T) {
	as := NewAuthorizationService([]string{"su"}, nil)

	assert.Equal(t, RoleSuperuser, as.RoleOf("su"))
	assert.Equal(t, RoleUser, as.RoleOf("alice"))
	assert.True(t, as.HasPermission(RoleUser, PermWriteTexts))
	assert.False(t, as.HasPermission(RoleUser, PermManageUsers))
	assert.NoError(t, as.ValidatePermission("alice", PermReadImages))
	assert.ElementsMatch(t, []string{"su"}, as.Superusers())
}
