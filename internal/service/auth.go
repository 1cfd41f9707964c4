package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgcrypto "github.com/Nguyentram30/activity-portal/internal/crypto"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/limiter"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

const refreshTokenBytes = 32

// AuthService defines account sign-up, sign-in and token lifecycle.
type AuthService interface {
	// SignUp creates a student account and signs it in.
	SignUp(ctx context.Context, req model.SignUpRequest, userAgent string) (model.Tokens, *model.User, error)
	// SignIn applies rate-limiting by (email, ip) and authenticates the user.
	SignIn(ctx context.Context, req model.SignInRequest, ip, userAgent string) (model.Tokens, *model.User, error)
	// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
	Refresh(ctx context.Context, refreshToken, userAgent string) (model.Tokens, *model.User, error)
	// SignOut revokes a refresh token. Unknown tokens are ignored.
	SignOut(ctx context.Context, refreshToken string) error
	// Me loads the caller's account.
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// ParseAccessToken verifies an access token and returns its actor.
	ParseAccessToken(token string) (Actor, error)
}

// AccessClaims are the claims carried by access tokens.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lim        limiter.Limiter
	features   FeatureChecker
	now        func() time.Time
}

// AuthOption customises AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithFeatures gates self sign-up on the self_signup toggle.
func WithFeatures(f FeatureChecker) AuthOption {
	return func(s *AuthServiceImpl) { s.features = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthServiceImpl) { s.now = now }
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	signKey []byte,
	accessTTL, refreshTTL time.Duration,
	lim limiter.Limiter,
	opts ...AuthOption,
) *AuthServiceImpl {
	s := &AuthServiceImpl{
		users:      users,
		sessions:   sessions,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lim:        lim,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SignUp registers a student. Emails are unique regardless of case.
func (s *AuthServiceImpl) SignUp(ctx context.Context, req model.SignUpRequest, userAgent string) (model.Tokens, *model.User, error) {
	if err := req.Validate(); err != nil {
		return model.Tokens{}, nil, err
	}
	if err := requireFeature(ctx, s.features, FeatureSelfSignup); err != nil {
		return model.Tokens{}, nil, err
	}
	u, err := newUser(req.DisplayName, req.Email, req.Password, model.RoleStudent)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	u.StudentID, u.Faculty = trimPtr(req.StudentID), trimPtr(req.Faculty)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.Tokens{}, nil, fmt.Errorf("email already registered: %w", err)
		}
		return model.Tokens{}, nil, err
	}
	tok, err := s.issue(ctx, u, userAgent)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tok, u, nil
}

// SignIn authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) SignIn(ctx context.Context, req model.SignInRequest, ip, userAgent string) (model.Tokens, *model.User, error) {
	if err := req.Validate(); err != nil {
		return model.Tokens{}, nil, err
	}
	subject := limiter.Subject(req.Email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !allowed {
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, subject)
	ok := false
	if err == nil {
		ok, err = pkgcrypto.VerifyPassword(req.Password, u.PwdHash)
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) && !errors.Is(err, pkgcrypto.ErrMalformedHash) {
		return model.Tokens{}, nil, err
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, nil, fmt.Errorf("invalid email or password: %w", errs.ErrUnauthorized)
	}
	if u.Status == model.UserLocked {
		return model.Tokens{}, nil, fmt.Errorf("account locked: %w", errs.ErrForbidden)
	}

	_ = s.lim.Success(ctx, subject, ipHash)

	tok, err := s.issue(ctx, u, userAgent)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tok, u, nil
}

// Refresh exchanges a live refresh token for a new pair. A token can be used once.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken, userAgent string) (model.Tokens, *model.User, error) {
	if err := (model.RefreshRequest{RefreshToken: refreshToken}).Validate(); err != nil {
		return model.Tokens{}, nil, err
	}
	sess, err := s.sessions.GetByHash(ctx, pkgcrypto.HashToken(refreshToken))
	if errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, nil, fmt.Errorf("refresh token: %w", errs.ErrUnauthorized)
	}
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, nil, fmt.Errorf("refresh token reused: %w", errs.ErrUnauthorized)
		}
		return model.Tokens{}, nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		return model.Tokens{}, nil, fmt.Errorf("refresh token expired: %w", errs.ErrUnauthorized)
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if u.Status == model.UserLocked {
		return model.Tokens{}, nil, fmt.Errorf("account locked: %w", errs.ErrForbidden)
	}
	tok, err := s.issue(ctx, u, userAgent)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tok, u, nil
}

// SignOut revokes the refresh session behind refreshToken, if any.
func (s *AuthServiceImpl) SignOut(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	sess, err := s.sessions.GetByHash(ctx, pkgcrypto.HashToken(refreshToken))
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, sess.ID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		// token outlived its account
		return nil, errs.ErrUnauthorized
	}
	return u, err
}

// ParseAccessToken verifies HS256 and expiry (30s leeway) and returns the actor.
func (s *AuthServiceImpl) ParseAccessToken(token string) (Actor, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Actor{}, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}
	role := model.ParseRole(claims.Role)
	if !role.Valid() {
		return Actor{}, fmt.Errorf("bad role: %w", errs.ErrUnauthorized)
	}
	return Actor{ID: id, Role: role}, nil
}

// issue creates an access token and a stored refresh session.
func (s *AuthServiceImpl) issue(ctx context.Context, u *model.User, userAgent string) (model.Tokens, error) {
	access, exp, err := s.issueAccessToken(u.ID, u.Role)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := pkgcrypto.NewToken(refreshTokenBytes)
	if err != nil {
		return model.Tokens{}, err
	}
	sid, err := newID()
	if err != nil {
		return model.Tokens{}, err
	}
	sess := &model.RefreshSession{
		ID:        sid,
		UserID:    u.ID,
		TokenHash: pkgcrypto.HashToken(refresh),
		ExpiresAt: s.now().Add(s.refreshTTL),
		UserAgent: userAgent,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject and role.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID, role model.Role) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

func newUser(name, email, password string, role model.Role) (*model.User, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:          id,
		DisplayName: strings.TrimSpace(name),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		PwdHash:     hash,
		Role:        role,
		Status:      model.UserActive,
	}, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
