// Package model defines the records exchanged between the portal API and its clients,
// together with the server-side entities stored behind them.
package model

import "strings"

// Role is the closed set of portal roles.
type Role string

const (
	// RoleUnknown is an absent or unrecognised role. It never satisfies a role set.
	RoleUnknown Role = ""
	RoleStudent Role = "student"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// roleAliases maps wire labels onto canonical roles. "organizer" is the label some
// clients send for activity managers.
var roleAliases = map[string]Role{
	"student":   RoleStudent,
	"manager":   RoleManager,
	"organizer": RoleManager,
	"organiser": RoleManager,
	"admin":     RoleAdmin,
}

// ParseRole normalises a wire label. Unrecognised labels yield RoleUnknown.
func ParseRole(s string) Role {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r
	}
	return RoleUnknown
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleManager || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// MarshalText always emits the canonical label.
func (r Role) MarshalText() ([]byte, error) { return []byte(r), nil }

// UnmarshalText accepts canonical labels and aliases.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
