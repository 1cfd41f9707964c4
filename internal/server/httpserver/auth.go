package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	tok, u, err := s.svc.Auth.SignUp(r.Context(), req, r.UserAgent())
	s.writeSession(w, http.StatusCreated, tok, u, err)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	tok, u, err := s.svc.Auth.SignIn(r.Context(), req, clientIP(r), r.UserAgent())
	s.writeSession(w, http.StatusOK, tok, u, err)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	tok, u, err := s.svc.Auth.Refresh(r.Context(), req.RefreshToken, r.UserAgent())
	s.writeSession(w, http.StatusOK, tok, u, err)
}

// handleSignOut always clears the cookie; the refresh token in the body is optional.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	if err := s.svc.Auth.SignOut(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	http.SetCookie(w, s.cookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Auth.Me(r.Context(), actor(r).ID)
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Profile())
}

func (s *Server) writeSession(w http.ResponseWriter, status int, tok model.Tokens, u *model.User, err error) {
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	http.SetCookie(w, s.cookie(tok.AccessToken, tok.ExpiresAt))
	writeJSON(w, status, model.AuthResponse{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
		User:         u.Profile(),
	})
}

func (s *Server) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
