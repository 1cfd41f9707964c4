package portal

import (
	"context"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/model"
)

// AuthService covers the session lifecycle endpoints.
type AuthService struct{ c *apiclient.Client }

func NewAuthService(c *apiclient.Client) *AuthService { return &AuthService{c: c} }

// SignUp creates a student account and returns its first token pair.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.AuthResponse, error) {
	return sendJSON[model.AuthResponse](ctx, s.c, http.MethodPost, "/auth/signup", req)
}

// SignIn exchanges credentials for tokens. The server also sets the session cookie.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest) (*model.AuthResponse, error) {
	return sendJSON[model.AuthResponse](ctx, s.c, http.MethodPost, "/auth/signin", req)
}

// SignOut revokes refreshToken (when given) and clears the session cookie.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = model.RefreshRequest{RefreshToken: refreshToken}
	}
	return s.c.Do(ctx, http.MethodPost, "/auth/signout", nil, body, nil)
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, req model.RefreshRequest) (*model.AuthResponse, error) {
	return sendJSON[model.AuthResponse](ctx, s.c, http.MethodPost, "/auth/refresh", req)
}

// Me resolves the profile of the caller. A non-empty bearer is used instead of the
// stored token, which lets a fresh sign-in fetch its profile before the session
// store has been updated.
func (s *AuthService) Me(ctx context.Context, bearer string) (*model.UserProfile, error) {
	var opts []apiclient.CallOption
	if bearer != "" {
		opts = append(opts, apiclient.WithBearer(bearer))
	}
	var p model.UserProfile
	if err := s.c.Do(ctx, http.MethodGet, "/users/me", nil, nil, &p, opts...); err != nil {
		return nil, err
	}
	return &p, nil
}
