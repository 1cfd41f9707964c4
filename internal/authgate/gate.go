// Package authgate decides whether a session may enter a role-restricted area.
package authgate

import (
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/session"
)

// RoleSet is the set of roles admitted by a guard.
type RoleSet map[model.Role]struct{}

// Roles builds a RoleSet.
func Roles(roles ...model.Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Presets used by the admin and manager areas.
var (
	AdminOnly      = Roles(model.RoleAdmin)
	ManagerOrAdmin = Roles(model.RoleManager, model.RoleAdmin)
)

// Has reports whether r is in the set. RoleUnknown is never a member.
func (s RoleSet) Has(r model.Role) bool {
	if r == model.RoleUnknown {
		return false
	}
	_, ok := s[r]
	return ok
}

// Reason explains a denial.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonForbidden:
		return "forbidden"
	default:
		return "none"
	}
}

// Decision is the outcome of Guard. Redirect is empty when Allowed.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Redirect string
}

// Err maps a denial to errs.ErrUnauthorized or errs.ErrForbidden.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonUnauthenticated:
		return errs.ErrUnauthorized
	case ReasonForbidden:
		return errs.ErrForbidden
	default:
		return nil
	}
}

// Guard evaluates s against required:
// no token sends the caller to sign in; a token without an admitted role (or without
// a profile) sends them home; anything else is allowed.
func Guard(s session.Session, required RoleSet) Decision {
	if !s.Authenticated() {
		return Decision{Reason: ReasonUnauthenticated, Redirect: session.RouteLogin}
	}
	if s.Profile == nil || !required.Has(s.Profile.Role) {
		return Decision{Reason: ReasonForbidden, Redirect: session.RouteHome}
	}
	return Decision{Allowed: true}
}

// SessionReader is the read side of session.Store.
type SessionReader interface {
	Current() session.Session
}

// Gate applies Guard to the live session and performs the redirect on denial.
type Gate struct {
	sessions SessionReader
	nav      session.Navigator
}

func New(sessions SessionReader, nav session.Navigator) *Gate {
	return &Gate{sessions: sessions, nav: nav}
}

// Enter returns nil when the current session is admitted. Otherwise it navigates to
// the redirect route and returns the matching sentinel.
func (g *Gate) Enter(required RoleSet) error {
	d := Guard(g.sessions.Current(), required)
	if d.Allowed {
		return nil
	}
	if g.nav != nil {
		g.nav.Navigate(d.Redirect)
	}
	return d.Err()
}
