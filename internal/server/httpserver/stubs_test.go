package httpserver

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/service"
	"github.com/gofrs/uuid/v5"
)

var (
	adminID   = uuid.Must(uuid.FromString("00000000-0000-0000-0000-00000000000a"))
	managerID = uuid.Must(uuid.FromString("00000000-0000-0000-0000-00000000000b"))
	studentID = uuid.Must(uuid.FromString("00000000-0000-0000-0000-00000000000c"))
)

// Unimplemented methods of the embedded interfaces panic; Recover turns that into a 500.

type stubAuth struct {
	service.AuthService
	signInIP  string
	signedOut string
}

func (a *stubAuth) ParseAccessToken(tok string) (service.Actor, error) {
	switch tok {
	case "admin-token":
		return service.Actor{ID: adminID, Role: model.RoleAdmin}, nil
	case "manager-token":
		return service.Actor{ID: managerID, Role: model.RoleManager}, nil
	case "student-token":
		return service.Actor{ID: studentID, Role: model.RoleStudent}, nil
	}
	return service.Actor{}, errs.ErrUnauthorized
}

func (a *stubAuth) SignIn(_ context.Context, req model.SignInRequest, ip, _ string) (model.Tokens, *model.User, error) {
	a.signInIP = ip
	if req.Password != "correct horse" {
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}
	return model.Tokens{
			AccessToken:  "student-token",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		&model.User{ID: studentID, Email: req.Email, Role: model.RoleStudent, DisplayName: "Lan"}, nil
}

func (a *stubAuth) SignOut(_ context.Context, token string) error {
	a.signedOut = token
	return nil
}

func (a *stubAuth) Me(_ context.Context, id uuid.UUID) (*model.User, error) {
	return &model.User{ID: id, Email: "me@uni.example", Role: model.RoleStudent}, nil
}

type stubActivities struct {
	service.ActivityService
	gotActor  service.Actor
	gotQuery  model.ActivityQuery
	gotReview model.ReviewRequest
	err       error
}

func (s *stubActivities) List(_ context.Context, q model.ActivityQuery) ([]model.Activity, error) {
	s.gotQuery = q
	return []model.Activity{{Title: "Clean-up day"}}, s.err
}

func (s *stubActivities) Get(_ context.Context, a service.Actor, id uuid.UUID) (*model.Activity, error) {
	s.gotActor = a
	if s.err != nil {
		return nil, s.err
	}
	return &model.Activity{ID: id, Title: "Clean-up day"}, nil
}

func (s *stubActivities) ListManaged(_ context.Context, a service.Actor, _ model.ActivityQuery) ([]model.Activity, error) {
	s.gotActor = a
	return []model.Activity{}, nil
}

func (s *stubActivities) Approve(_ context.Context, a service.Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	s.gotActor, s.gotReview = a, req
	return &model.Activity{ID: id, Status: model.ActivityApproved}, nil
}

func (s *stubActivities) Delete(_ context.Context, a service.Actor, _ uuid.UUID) error {
	s.gotActor = a
	return s.err
}

type stubUsers struct {
	service.UserService
}

func (stubUsers) List(context.Context, service.Actor, model.UserQuery) ([]model.User, error) {
	return []model.User{}, nil
}

func (stubUsers) Students(context.Context, service.Actor, model.StudentQuery) ([]model.Student, error) {
	return []model.Student{}, nil
}

func (stubUsers) ExportStudents(context.Context, service.Actor, model.StudentQuery) (*model.Blob, error) {
	return &model.Blob{FileName: "students-20250310.csv", ContentType: "text/csv", Data: []byte("a,b\n")}, nil
}

type stubDocuments struct {
	service.DocumentService
	got  service.UploadInput
	body string
}

func (s *stubDocuments) Upload(_ context.Context, _ service.Actor, in service.UploadInput) (*model.UploadResult, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.got, s.body = in, string(b)
	return &model.UploadResult{URL: "http://portal.test/files/x.png", FileName: in.FileName, Size: int64(len(b))}, nil
}

type stubCheckIn struct {
	service.CheckInService
}

func (stubCheckIn) Issue(_ context.Context, _ service.Actor, id uuid.UUID) (*model.QRCode, error) {
	return &model.QRCode{ActivityID: id, Code: "c0de"}, nil
}

func (stubCheckIn) CheckIn(context.Context, service.Actor, model.CheckInRequest) (*model.Registration, error) {
	return nil, errs.Invalid("code", "unknown or expired")
}

var errBoom = errors.New("boom")
