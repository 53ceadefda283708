package auth

import (
	"fmt"
	"strings"

	"github.com/secureapi/authcore/internal/apperrors"
)

type Role string

// Fixed role enumeration. Role names are matched case-insensitively
// but stored and issued in canonical form.
const (
	RoleAdministrator Role = "Administrator"
	RoleModerator     Role = "Moderator"
	RoleUser          Role = "User"
)

// Role granted to every registered user
const DefaultRole = RoleUser

var allRoles = []Role{RoleAdministrator, RoleModerator, RoleUser}

// ParseRole resolves a user supplied role name to its canonical form
func ParseRole(name string) (Role, error) {
	for _, role := range allRoles {
		if strings.EqualFold(string(role), name) {
			return role, nil
		}
	}
	return "", fmt.Errorf("role %q: %w", name, apperrors.ErrUnknownRole)
}
