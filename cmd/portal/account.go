package main

import (
	"context"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

func (a *app) cmdSignUp(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	studentID := fs.String("student-id", "", "student number")
	faculty := fs.String("faculty", "", "faculty")
	if err := parse(fs, args); err != nil {
		return err
	}
	req := model.SignUpRequest{
		DisplayName: *name,
		Email:       *email,
		Password:    *password,
		StudentID:   optional(*studentID),
		Faculty:     optional(*faculty),
	}
	resp, err := a.api.Auth.SignUp(ctx, req)
	if err != nil {
		return err
	}
	return a.startSession(ctx, resp)
}

func (a *app) cmdSignIn(ctx context.Context, args []string) error {
	fs := a.flags("signin")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	resp, err := a.api.Auth.SignIn(ctx, model.SignInRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return a.startSession(ctx, resp)
}

func (a *app) cmdRefresh(ctx context.Context, args []string) error {
	fs := a.flags("refresh")
	token := fs.String("token", "", "refresh token")
	if err := parse(fs, args); err != nil {
		return err
	}
	resp, err := a.api.Auth.Refresh(ctx, model.RefreshRequest{RefreshToken: *token})
	if err != nil {
		return err
	}
	return a.startSession(ctx, resp)
}

// startSession stores the new token and profile, fetching the profile with the new
// token when the response carries none.
func (a *app) startSession(ctx context.Context, resp *model.AuthResponse) error {
	profile := resp.User
	if profile.ID == "" {
		p, err := a.api.Auth.Me(ctx, resp.Token)
		if err != nil {
			return err
		}
		profile = *p
	}
	if err := a.store.Login(resp.Token, &profile); err != nil {
		return err
	}
	return a.printJSON(resp)
}

// cmdSignOut clears the local session even when the server call fails.
func (a *app) cmdSignOut(ctx context.Context, args []string) error {
	fs := a.flags("signout")
	refresh := fs.String("refresh", "", "refresh token to revoke")
	if err := parse(fs, args); err != nil {
		return err
	}
	callErr := a.api.Auth.SignOut(ctx, *refresh)
	if err := a.store.Logout(); err != nil {
		return err
	}
	return callErr
}

type whoami struct {
	Authenticated bool               `json:"authenticated"`
	Profile       *model.UserProfile `json:"profile,omitempty"`
	ExpiresAt     *time.Time         `json:"expiresAt,omitempty"`
	Expired       bool               `json:"expired,omitempty"`
	Home          string             `json:"home,omitempty"`
}

func (a *app) cmdWhoAmI(ctx context.Context, args []string) error {
	fs := a.flags("whoami")
	remote := fs.Bool("remote", false, "ask the server and refresh the cached profile")
	if err := parse(fs, args); err != nil {
		return err
	}
	s := a.store.Current()
	if !s.Authenticated() {
		return a.printJSON(whoami{})
	}
	if *remote {
		p, err := a.api.Auth.Me(ctx, "")
		if err != nil {
			return err
		}
		if err := a.store.SetProfile(p); err != nil {
			return err
		}
		s = a.store.Current()
	}
	out := whoami{Authenticated: true, Profile: s.Profile, Home: session.LandingRoute(s.Role())}
	if exp := tokenExpiry(s.Token); exp != nil {
		out.ExpiresAt = exp
		out.Expired = time.Now().After(*exp)
	}
	return a.printJSON(out)
}

// tokenExpiry reads the exp claim without verifying the signature; the CLI never
// holds the signing key.
func tokenExpiry(token string) *time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
