// Package session holds the client-side authentication state: the access token and
// the cached profile of the signed-in user, persisted across process restarts.
package session

import (
	"encoding/json"
	"sync"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"go.uber.org/zap"
)

// Storage keys.
const (
	KeyToken   = "auth_token"
	KeyProfile = "user_profile"
)

// Landing routes.
const (
	RouteLogin   = "/login"
	RouteHome    = "/"
	RouteAdmin   = "/admin"
	RouteManager = "/manager"
)

// LandingRoute returns the route a user lands on after signing in.
func LandingRoute(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return RouteAdmin
	case model.RoleManager:
		return RouteManager
	default:
		return RouteHome
	}
}

// Navigator receives route changes.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Session is a snapshot of the authentication state. An empty Token means signed out;
// Profile may be nil while Token is set.
type Session struct {
	Token   string
	Profile *model.UserProfile
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool { return s.Token != "" }

// Role returns the profile role or RoleUnknown.
func (s Session) Role() model.Role {
	if s.Profile == nil {
		return model.RoleUnknown
	}
	return s.Profile.Role
}

// Store is the single owner of the session. Writes persist first and update memory
// only when the storage commit succeeded.
type Store struct {
	mu      sync.RWMutex
	cur     Session
	storage Storage
	nav     Navigator
	log     *zap.Logger
}

// Open loads the persisted session. Malformed data never fails Open: an unreadable
// storage yields an empty session, an undecodable profile is dropped and a profile
// without a token is ignored.
func Open(storage Storage, nav Navigator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	s := &Store{storage: storage, nav: nav, log: log}
	s.cur = s.load()
	return s
}

func (s *Store) load() Session {
	data, err := s.storage.Load()
	if err != nil {
		s.log.Warn("session storage unreadable", zap.Error(err))
		return Session{}
	}
	tok := string(data[KeyToken])
	if tok == "" {
		return Session{}
	}
	out := Session{Token: tok}
	raw, ok := data[KeyProfile]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return out
	}
	var p model.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("stored profile is malformed; ignoring", zap.Error(err))
		return out
	}
	out.Profile = &p
	return out
}

// Login stores token and profile together, replacing any previous session, and
// navigates to the role's landing route.
func (s *Store) Login(token string, profile *model.UserProfile) error {
	if token == "" {
		return errs.Invalid("token", "required")
	}
	set := map[string][]byte{KeyToken: []byte(token)}
	var del []string
	p := cloneProfile(profile)
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		set[KeyProfile] = b
	} else {
		del = append(del, KeyProfile)
	}

	s.mu.Lock()
	if err := s.storage.Commit(set, del); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cur = Session{Token: token, Profile: p}
	s.mu.Unlock()

	route := LandingRoute(roleOf(p))
	s.log.Debug("signed in", zap.String("route", route))
	s.nav.Navigate(route)
	return nil
}

// SetProfile replaces the cached profile; nil clears it. A profile cannot be set
// while signed out.
func (s *Store) SetProfile(profile *model.UserProfile) error {
	p := cloneProfile(profile)

	s.mu.Lock()
	defer s.mu.Unlock()
	if p != nil && s.cur.Token == "" {
		return errs.ErrUnauthorized
	}
	if p == nil {
		if err := s.storage.Commit(nil, []string{KeyProfile}); err != nil {
			return err
		}
		s.cur.Profile = nil
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.storage.Commit(map[string][]byte{KeyProfile: b}, nil); err != nil {
		return err
	}
	s.cur.Profile = p
	return nil
}

// Logout removes both entries and navigates to the sign-in route.
func (s *Store) Logout() error {
	s.mu.Lock()
	if err := s.storage.Commit(nil, []string{KeyToken, KeyProfile}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cur = Session{}
	s.mu.Unlock()

	s.nav.Navigate(RouteLogin)
	return nil
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Session{Token: s.cur.Token}
	if s.cur.Profile != nil {
		p := *s.cur.Profile
		out.Profile = &p
	}
	return out
}

// Token returns the current access token; it satisfies apiclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// Reset drops the in-memory session without touching storage.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()
}

func roleOf(p *model.UserProfile) model.Role {
	if p == nil {
		return model.RoleUnknown
	}
	return p.Role
}

// cloneProfile detaches the stored profile from the caller's pointer.
func cloneProfile(p *model.UserProfile) *model.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
