package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is an employee role. The underlying value is the role's rank; a higher
// rank carries more authority.
type Role int

const (
	RoleIntern Role = iota
	RoleEmployee
	RoleManager
	RoleAdministrator
	RoleSuperAdministrator
)

// Direction selects the neighbour returned by NextRole.
type Direction int

const (
	DirectionUp Direction = iota + 1
	DirectionDown
)

var roleNames = [...]string{
	RoleIntern:             "intern",
	RoleEmployee:           "employee",
	RoleManager:            "manager",
	RoleAdministrator:      "administrator",
	RoleSuperAdministrator: "super_administrator",
}

var roleDisplayNames = [...]string{
	RoleIntern:             "Intern",
	RoleEmployee:           "Employee",
	RoleManager:            "Manager",
	RoleAdministrator:      "Administrator",
	RoleSuperAdministrator: "Super Administrator",
}

// roleAliases maps normalized spellings seen at the edges of the system to a role.
var roleAliases = map[string]Role{
	"intern":              RoleIntern,
	"employee":            RoleEmployee,
	"manager":             RoleManager,
	"administrator":       RoleAdministrator,
	"admin":               RoleAdministrator,
	"super_administrator": RoleSuperAdministrator,
	"super_admin":         RoleSuperAdministrator,
	"superadmin":          RoleSuperAdministrator,
	"superadministrator":  RoleSuperAdministrator,
}

// Roles returns every role ordered by ascending rank.
func Roles() []Role {
	return []Role{RoleIntern, RoleEmployee, RoleManager, RoleAdministrator, RoleSuperAdministrator}
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	return r >= RoleIntern && r <= RoleSuperAdministrator
}

// String returns the canonical wire name.
func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// DisplayName returns the human readable name used in notifications.
func (r Role) DisplayName() string {
	if !r.Valid() {
		return r.String()
	}
	return roleDisplayNames[r]
}

// RankOf returns the rank of role, or ErrUnknownRole outside the closed set.
func RankOf(role Role) (int, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	return int(role), nil
}

// NextRole returns the role adjacent to role in the given direction. The
// boolean is false at either end of the hierarchy or for an unknown role.
func NextRole(role Role, dir Direction) (Role, bool) {
	if !role.Valid() {
		return 0, false
	}
	var next Role
	switch dir {
	case DirectionUp:
		next = role + 1
	case DirectionDown:
		next = role - 1
	default:
		return 0, false
	}
	if !next.Valid() {
		return 0, false
	}
	return next, true
}

// ParseRole normalizes a role spelling ("SUPER_ADMIN", "Super Administrator",
// "super-administrator", ...) into a Role.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if role, ok := roleAliases[key]; ok {
		return role, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MarshalText encodes the canonical name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts any spelling understood by ParseRole.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalJSON encodes the role as its canonical string.
func (r Role) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON decodes a role string.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}
