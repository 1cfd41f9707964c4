package authgate

import (
	"testing"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/session"
	"github.com/stretchr/testify/require"
)

var allRoles = []model.Role{model.RoleStudent, model.RoleManager, model.RoleAdmin, model.RoleUnknown}

var sets = map[string]RoleSet{
	"admin":         AdminOnly,
	"manager|admin": ManagerOrAdmin,
	"student":       Roles(model.RoleStudent),
	"empty":         Roles(),
}

func withRole(r model.Role) session.Session {
	return session.Session{Token: "t", Profile: &model.UserProfile{ID: "1", Role: r}}
}

func TestGuard_NoToken_AlwaysLogin(t *testing.T) {
	t.Parallel()

	for name, set := range sets {
		for _, r := range allRoles {
			// A profile without a token is not reachable through the store but the
			// guard must still send such a session to sign in.
			s := session.Session{Profile: &model.UserProfile{Role: r}}
			d := Guard(s, set)
			require.False(t, d.Allowed, "%s/%s", name, r)
			require.Equal(t, ReasonUnauthenticated, d.Reason)
			require.Equal(t, session.RouteLogin, d.Redirect)
		}
		d := Guard(session.Session{}, set)
		require.Equal(t, session.RouteLogin, d.Redirect)
	}
}

func TestGuard_RoleOutsideSet_Home(t *testing.T) {
	t.Parallel()

	for name, set := range sets {
		for _, r := range allRoles {
			if set.Has(r) {
				continue
			}
			d := Guard(withRole(r), set)
			require.False(t, d.Allowed, "%s/%s", name, r)
			require.Equal(t, ReasonForbidden, d.Reason)
			require.Equal(t, session.RouteHome, d.Redirect)
			require.NotEqual(t, session.RouteLogin, d.Redirect)
		}
	}
}

func TestGuard_TokenWithoutProfile_Forbidden(t *testing.T) {
	t.Parallel()

	d := Guard(session.Session{Token: "t"}, ManagerOrAdmin)
	require.Equal(t, Decision{Reason: ReasonForbidden, Redirect: session.RouteHome}, d)
}

func TestGuard_RoleInSet_Allow(t *testing.T) {
	t.Parallel()

	require.True(t, Guard(withRole(model.RoleAdmin), AdminOnly).Allowed)
	require.True(t, Guard(withRole(model.RoleAdmin), ManagerOrAdmin).Allowed)
	require.True(t, Guard(withRole(model.RoleManager), ManagerOrAdmin).Allowed)
	require.False(t, Guard(withRole(model.RoleManager), AdminOnly).Allowed)
	require.False(t, Roles(model.RoleUnknown).Has(model.RoleUnknown))
}

type fixed session.Session

func (f fixed) Current() session.Session { return session.Session(f) }

func TestGate_Enter(t *testing.T) {
	t.Parallel()

	var got []string
	nav := session.NavigatorFunc(func(r string) { got = append(got, r) })

	require.ErrorIs(t, New(fixed{}, nav).Enter(AdminOnly), errs.ErrUnauthorized)
	require.ErrorIs(t, New(fixed(withRole(model.RoleStudent)), nav).Enter(AdminOnly), errs.ErrForbidden)
	require.NoError(t, New(fixed(withRole(model.RoleAdmin)), nav).Enter(AdminOnly))

	require.Equal(t, []string{session.RouteLogin, session.RouteHome}, got)
}
