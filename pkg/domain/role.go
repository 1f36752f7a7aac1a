package domain

import (
	"strings"

	dErrors "medgate/pkg/domain-errors"
)

// Role is the closed set of staff categories. The zero value is not a role.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleDoctor
	RoleReceptionist
)

// Roles lists every valid role, in declaration order.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleReceptionist}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RoleReceptionist:
		return "receptionist"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist:
		return true
	default:
		return false
	}
}

// ParseRole maps the stored/wire name of a role back to the enum.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "doctor":
		return RoleDoctor, nil
	case "receptionist":
		return RoleReceptionist, nil
	default:
		return RoleUnknown, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
