package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	auth *stubAuth
	acts *stubActivities
	docs *stubDocuments
	h    http.Handler
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ts := &testServer{auth: &stubAuth{}, acts: &stubActivities{}, docs: &stubDocuments{}}
	srv := New(Services{
		Auth:       ts.auth,
		Activities: ts.acts,
		Users:      stubUsers{},
		Documents:  ts.docs,
		CheckIn:    stubCheckIn{},
	}, opts, zaptest.NewLogger(t))
	ts.h = srv.Router()
	return ts
}

func (ts *testServer) do(method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", "", nil).Code)

	ts = newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	require.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/health", "", nil).Code)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/api/activities", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", decodeError(t, rec).Error)

	require.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/activities", "forged", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/activities?status=approved&search=clean", "student-token", nil).Code)
	require.Equal(t, model.ActivityApproved, ts.acts.gotQuery.Status)
	require.Equal(t, "clean", ts.acts.gotQuery.Search)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "student-token"})
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var p model.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, studentID.String(), p.ID)
}

func TestRoleAreas(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	cases := []struct {
		name, path, token string
		want              int
	}{
		{"student in admin", "/api/admin/users", "student-token", http.StatusForbidden},
		{"manager in admin", "/api/admin/users", "manager-token", http.StatusForbidden},
		{"admin in admin", "/api/admin/users", "admin-token", http.StatusOK},
		{"student in manager", "/api/manager/students", "student-token", http.StatusForbidden},
		{"manager in manager", "/api/manager/students", "manager-token", http.StatusOK},
		{"admin in manager", "/api/manager/activities", "admin-token", http.StatusOK},
		{"anonymous", "/api/manager/students", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ts.do(http.MethodGet, tc.path, tc.token, nil).Code)
		})
	}
}

func TestSignInAndOut(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{CookieSecure: true})

	rec := ts.do(http.MethodPost, "/api/auth/signin", "",
		strings.NewReader(`{"email":"lan@uni.example","password":"correct horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "192.0.2.1", ts.auth.signInIP)

	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "student-token", resp.Token)
	require.Equal(t, "refresh", resp.RefreshToken)
	require.Equal(t, model.RoleStudent, resp.User.Role)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)
	require.Equal(t, "student-token", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)

	rec = ts.do(http.MethodPost, "/api/auth/signin", "",
		strings.NewReader(`{"email":"lan@uni.example","password":"nope"}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())

	rec = ts.do(http.MethodPost, "/api/auth/signin", "", strings.NewReader(`{"email":"x","extra":1}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", decodeError(t, rec).Error)

	rec = ts.do(http.MethodPost, "/api/auth/signout", "", strings.NewReader(`{"refreshToken":"refresh"}`))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "refresh", ts.auth.signedOut)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServiceErrorsAreMapped(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	id := "00000000-0000-0000-0000-0000000000ff"

	rec := ts.do(http.MethodGet, "/api/activities/not-a-uuid", "student-token", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "validation_failed", body.Error)
	require.Equal(t, map[string]string{"id": "invalid id"}, body.Fields)

	rec = ts.do(http.MethodPost, "/api/registrations/check-in", "student-token", strings.NewReader(`{"code":"x"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "unknown or expired", decodeError(t, rec).Fields["code"])

	ts.acts.err = errBoom
	rec = ts.do(http.MethodDelete, "/api/manager/activities/"+id, "manager-token", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal error", decodeError(t, rec).Message)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
		kind string
	}{
		{fmt.Errorf("activity: %w", errs.ErrNotFound), http.StatusNotFound, "not_found"},
		{errs.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errs.ErrConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("email: %w", errs.ErrAlreadyExists), http.StatusConflict, "already_exists"},
		{errs.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errs.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, nil, tc.err)
		require.Equal(t, tc.code, rec.Code, tc.kind)
		require.Equal(t, tc.kind, decodeError(t, rec).Error)
	}
}

func TestModerationAndDelete(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	id := "00000000-0000-0000-0000-0000000000ff"

	rec := ts.do(http.MethodPost, "/api/admin/activities/"+id+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, adminID, ts.acts.gotActor.ID)
	require.Empty(t, ts.acts.gotReview.Note)

	rec = ts.do(http.MethodPost, "/api/admin/activities/"+id+"/approve", "admin-token", strings.NewReader(`{"note":"looks good"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "looks good", ts.acts.gotReview.Note)

	rec = ts.do(http.MethodDelete, "/api/manager/activities/"+id, "manager-token", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, model.RoleManager, ts.acts.gotActor.Role)
	require.Empty(t, rec.Body.String())
}

func TestExportStudents(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	rec := ts.do(http.MethodGet, "/api/manager/students/export", "manager-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="students-20250310.csv"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "a,b\n", rec.Body.String())
}

func TestUpload(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{MaxUploadBytes: 1 << 10})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Poster"))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="poster.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/manager/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer manager-token")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "poster.png", ts.docs.got.FileName)
	require.Equal(t, "image/png", ts.docs.got.ContentType)
	require.Equal(t, "Poster", ts.docs.got.Title)
	require.Equal(t, "png-bytes", ts.docs.body)

	// A form without the file part.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Poster"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/manager/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer manager-token")
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "required", decodeError(t, rec).Fields["file"])
}

func TestIssueQRCode(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	id := "00000000-0000-0000-0000-0000000000ff"

	rec := ts.do(http.MethodPost, "/api/manager/activities/"+id+"/qr-code", "manager-token", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr model.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	require.Equal(t, "c0de", qr.Code)
	require.Equal(t, id, qr.ActivityID.String())
}

func TestRecoverFromPanic(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	// stubUsers does not implement Create.
	rec := ts.do(http.MethodPost, "/api/admin/users", "admin-token", strings.NewReader(`{"email":"a@b.co"}`))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal", decodeError(t, rec).Error)
}

func TestThrottle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{Throttle: ThrottleConfig{StudentRPM: 1, StaffRPM: 0}})

	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/activities", "student-token", nil).Code)
	rec := ts.do(http.MethodGet, "/api/activities", "student-token", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limited", decodeError(t, rec).Error)

	// Staff budget of zero disables throttling.
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/manager/activities", "manager-token", nil).Code)
	}

	// Anonymous auth endpoints are never throttled per user.
	require.Equal(t, http.StatusNoContent, ts.do(http.MethodPost, "/api/auth/signout", "", nil).Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{AllowedOrigins: []string{"https://portal.example/"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/activities", nil)
	req.Header.Set("Origin", "https://portal.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://portal.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/api/activities", "student-token", nil)

	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `portal_http_requests_total{method="GET",route="/api/activities",status="200"} 1`)
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o600))
	ts := newTestServer(t, Options{FilesDir: dir})

	rec := ts.do(http.MethodGet, "/files/a.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", rec.Body.String())

	require.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/files/", "", nil).Code)
	require.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/files/missing.txt", "", nil).Code)
}
