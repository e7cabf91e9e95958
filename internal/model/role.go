package model

import "strings"

// Role is the portal role encoded in backend tokens.
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// ParseRole normalizes a role string case-insensitively. The second return
// value reports whether the role is one the portal recognizes.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleTeacher:
		return RoleTeacher, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return Role(raw), false
	}
}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// UserType is the lowercase form kept alongside the role in session state.
func (r Role) UserType() string {
	return strings.ToLower(string(r))
}
