package security

import (
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
)

// Role represents a user role
type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleUser      Role = "user"
)

// Permission represents an action permission
type Permission string

const (
	PermManageUsers Permission = "manage_users"
	PermReadTexts   Permission = "read_texts"
	PermWriteTexts  Permission = "write_texts"
	PermReadImages  Permission = "read_images"
	PermWriteImages Permission = "write_images"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleSuperuser: {
		PermManageUsers,
		PermReadTexts,
		PermWriteTexts,
		PermReadImages,
		PermWriteImages,
	},
	RoleUser: {
		PermReadTexts,
		PermWriteTexts,
		PermReadImages,
		PermWriteImages,
	},
}

// AuthorizationService is the privilege gate. Identities listed as
// superusers hold RoleSuperuser, everyone else RoleUser.
type AuthorizationService struct {
	superusers map[string]struct{}
	logger     *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(superusers []string, logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]struct{}, len(superusers))
	for _, name := range superusers {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &AuthorizationService{
		superusers: set,
		logger:     logger,
	}
}

// RoleOf returns the role held by identity
func (as *AuthorizationService) RoleOf(identity string) Role {
	if _, ok := as.superusers[identity]; ok {
		return RoleSuperuser
	}
	return RoleUser
}

// Superusers returns the configured superuser identities
func (as *AuthorizationService) Superusers() []string {
	out := make([]string, 0, len(as.superusers))
	for name := range as.superusers {
		out = append(out, name)
	}
	return out
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission fails with Forbidden unless identity's role grants permission
func (as *AuthorizationService) ValidatePermission(identity string, permission Permission) error {
	role := as.RoleOf(identity)
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("identity", identity),
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return apperror.NewForbidden("insufficient privileges")
	}
	return nil
}

// RequirePrivileged gates user management
func (as *AuthorizationService) RequirePrivileged(identity string) error {
	return as.ValidatePermission(identity, PermManageUsers)
}
