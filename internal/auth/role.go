package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of access levels a user can hold. Every user carries
// exactly one role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes an external role representation. It accepts the
// wire-level upper-case form as well as the internal one.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleUser):
		return RoleUser, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// External returns the representation exposed to clients and embedded in
// token claims ("USER", "ADMIN").
func (r Role) External() string {
	return strings.ToUpper(string(r))
}
