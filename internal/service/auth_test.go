package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newAuth(users *fakeUsers, sessions *fakeSessions, lim *fakeLimiter, opts ...AuthOption) *AuthServiceImpl {
	return NewAuthService(users, sessions, testKey, 15*time.Minute, 24*time.Hour, lim, opts...)
}

func signUp(t *testing.T, s *AuthServiceImpl, email string) (model.Tokens, *model.User) {
	t.Helper()
	tok, u, err := s.SignUp(context.Background(), model.SignUpRequest{
		DisplayName: "Lan Nguyen",
		Email:       email,
		Password:    "correct-horse",
		StudentID:   ptr(" SV001 "),
		Faculty:     ptr(""),
	}, "test-agent")
	require.NoError(t, err)
	return tok, u
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	users, sessions := newFakeUsers(), newFakeSessions()
	s := newAuth(users, sessions, &fakeLimiter{allowOK: true})

	tok, u := signUp(t, s, " Lan@Uni.Example ")
	require.Equal(t, "lan@uni.example", u.Email)
	require.Equal(t, model.RoleStudent, u.Role)
	require.Equal(t, model.UserActive, u.Status)
	require.Equal(t, "SV001", *u.StudentID)
	require.Nil(t, u.Faculty)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	require.Equal(t, 1, sessions.live())

	actor, err := s.ParseAccessToken(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, actor.ID)
	require.Equal(t, model.RoleStudent, actor.Role)

	_, _, err = s.SignUp(context.Background(), model.SignUpRequest{
		DisplayName: "Other", Email: "LAN@uni.example", Password: "correct-horse",
	}, "")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, _, err = s.SignUp(context.Background(), model.SignUpRequest{Email: "bad", Password: "short"}, "")
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "displayName")
	require.Contains(t, ve.Fields, "email")
	require.Contains(t, ve.Fields, "password")
}

func TestSignUp_Disabled(t *testing.T) {
	t.Parallel()

	s := newAuth(newFakeUsers(), newFakeSessions(), &fakeLimiter{allowOK: true},
		WithFeatures(fakeFeatures{FeatureSelfSignup: false}))
	_, _, err := s.SignUp(context.Background(), model.SignUpRequest{
		DisplayName: "Lan", Email: "lan@uni.example", Password: "correct-horse",
	}, "")
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users, sessions := newFakeUsers(), newFakeSessions()
	lim := &fakeLimiter{allowOK: true}
	s := newAuth(users, sessions, lim)
	_, u := signUp(t, s, "lan@uni.example")

	tok, got, err := s.SignIn(ctx, model.SignInRequest{Email: "LAN@uni.example", Password: "correct-horse"}, "10.0.0.1", "ua")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, 1, lim.successCalls)
	require.Equal(t, []string{"lan@uni.example"}, lim.subjects)

	_, _, err = s.SignIn(ctx, model.SignInRequest{Email: "lan@uni.example", Password: "wrong-pass"}, "10.0.0.1", "ua")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, _, err2 := s.SignIn(ctx, model.SignInRequest{Email: "nobody@uni.example", Password: "wrong-pass"}, "10.0.0.1", "ua")
	require.ErrorIs(t, err2, errs.ErrUnauthorized)
	require.Equal(t, err.Error(), err2.Error())
	require.Equal(t, 2, lim.failureCalls)
}

func TestSignIn_RateLimited(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := newFakeUsers()
	s := newAuth(users, newFakeSessions(), &fakeLimiter{allowOK: true})
	signUp(t, s, "lan@uni.example")

	blocked := newAuth(users, newFakeSessions(), &fakeLimiter{allowOK: false})
	_, _, err := blocked.SignIn(ctx, model.SignInRequest{Email: "lan@uni.example", Password: "correct-horse"}, "1.1.1.1", "")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	tripping := newAuth(users, newFakeSessions(), &fakeLimiter{allowOK: true, failBlocked: true})
	_, _, err = tripping.SignIn(ctx, model.SignInRequest{Email: "lan@uni.example", Password: "nope-nope"}, "1.1.1.1", "")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	broken := newAuth(users, newFakeSessions(), &fakeLimiter{allowErr: errors.New("redis down")})
	_, _, err = broken.SignIn(ctx, model.SignInRequest{Email: "lan@uni.example", Password: "correct-horse"}, "1.1.1.1", "")
	require.EqualError(t, err, "redis down")
}

func TestSignIn_Locked(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	s := newAuth(users, newFakeSessions(), &fakeLimiter{allowOK: true})
	_, u := signUp(t, s, "lan@uni.example")
	u.Status = model.UserLocked
	require.NoError(t, users.Update(context.Background(), u))

	_, _, err := s.SignIn(context.Background(), model.SignInRequest{Email: "lan@uni.example", Password: "correct-horse"}, "", "")
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestRefresh_Rotates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions := newFakeSessions()
	s := newAuth(newFakeUsers(), sessions, &fakeLimiter{allowOK: true})
	tok, u := signUp(t, s, "lan@uni.example")

	next, got, err := s.Refresh(ctx, tok.RefreshToken, "ua")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.NotEqual(t, tok.RefreshToken, next.RefreshToken)
	require.Equal(t, 1, sessions.live())

	// the old token is single-use
	_, _, err = s.Refresh(ctx, tok.RefreshToken, "ua")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, _, err = s.Refresh(ctx, "", "ua")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestRefresh_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newAuth(newFakeUsers(), newFakeSessions(), &fakeLimiter{allowOK: true}, WithClock(clock))
	tok, _ := signUp(t, s, "lan@uni.example")

	now = now.Add(25 * time.Hour)
	_, _, err := s.Refresh(context.Background(), tok.RefreshToken, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions := newFakeSessions()
	s := newAuth(newFakeUsers(), sessions, &fakeLimiter{allowOK: true})
	tok, _ := signUp(t, s, "lan@uni.example")

	require.NoError(t, s.SignOut(ctx, tok.RefreshToken))
	require.Zero(t, sessions.live())
	require.NoError(t, s.SignOut(ctx, tok.RefreshToken))
	require.NoError(t, s.SignOut(ctx, ""))

	_, _, err := s.Refresh(ctx, tok.RefreshToken, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	s := newAuth(users, newFakeSessions(), &fakeLimiter{allowOK: true})
	_, u := signUp(t, s, "lan@uni.example")

	got, err := s.Me(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	require.NoError(t, users.Delete(context.Background(), u.ID))
	_, err = s.Me(context.Background(), u.ID)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestParseAccessToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newAuth(newFakeUsers(), newFakeSessions(), &fakeLimiter{allowOK: true}, WithClock(clock))
	admin := actorOf(model.RoleAdmin)

	tok, _, err := s.issueAccessToken(admin.ID, admin.Role)
	require.NoError(t, err)
	got, err := s.ParseAccessToken(tok)
	require.NoError(t, err)
	require.Equal(t, admin, got)

	// within leeway
	now = now.Add(15*time.Minute + 20*time.Second)
	_, err = s.ParseAccessToken(tok)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.ParseAccessToken(tok)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	other := NewAuthService(nil, nil, []byte("another-key-another-key-another!"), time.Minute, time.Hour, nil)
	foreign, _, err := other.issueAccessToken(admin.ID, admin.Role)
	require.NoError(t, err)
	_, err = s.ParseAccessToken(foreign)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: admin.ID.String(), ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ParseAccessToken(unsigned)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = s.ParseAccessToken("not-a-jwt")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}
