package portal

import (
	"context"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AdminService covers /admin: the shared back-office endpoints plus users,
// moderation, documents, the audit log and system settings.
type AdminService struct {
	backOffice
}

func NewAdminService(c *apiclient.Client) *AdminService {
	return &AdminService{backOffice{c: c, prefix: "admin"}}
}

func (s *AdminService) ListUsers(ctx context.Context, q *model.UserQuery) ([]model.User, error) {
	return getJSON[[]model.User](ctx, s.c, s.path("users"), q)
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.c.Do(ctx, http.MethodGet, s.path("users", id.String()), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *AdminService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	return sendJSON[model.User](ctx, s.c, http.MethodPost, s.path("users"), req)
}

func (s *AdminService) UpdateUser(ctx context.Context, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error) {
	return sendJSON[model.User](ctx, s.c, http.MethodPut, s.path("users", id.String()), req)
}

func (s *AdminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.c.Do(ctx, http.MethodDelete, s.path("users", id.String()), nil, nil, nil)
}

// ApproveActivity publishes a pending activity. The note is optional.
func (s *AdminService) ApproveActivity(ctx context.Context, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	return sendJSON[model.Activity](ctx, s.c, http.MethodPost, s.path("activities", id.String(), "approve"), optionalNote(req))
}

// RejectActivity rejects an activity; the reason is required.
func (s *AdminService) RejectActivity(ctx context.Context, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	return sendJSON[model.Activity](ctx, s.c, http.MethodPost, s.path("activities", id.String(), "reject"), requiredNote(req))
}

// RequestActivityEdit sends the activity back to its organizer with a note.
func (s *AdminService) RequestActivityEdit(ctx context.Context, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	return sendJSON[model.Activity](ctx, s.c, http.MethodPost, s.path("activities", id.String(), "request-edit"), requiredNote(req))
}

func (s *AdminService) ListDocuments(ctx context.Context, q *model.DocumentQuery) ([]model.Document, error) {
	return getJSON[[]model.Document](ctx, s.c, s.path("documents"), q)
}

// UploadDocument publishes a titled document.
func (s *AdminService) UploadDocument(ctx context.Context, req UploadRequest) (*model.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, errs.Invalid("title", "required")
	}
	var d model.Document
	if err := s.c.Upload(ctx, s.path("documents"), req.File, req.fields(), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *AdminService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return s.c.Do(ctx, http.MethodDelete, s.path("documents", id.String()), nil, nil, nil)
}

// ListLogs pages through the audit log, newest first.
func (s *AdminService) ListLogs(ctx context.Context, q *model.LogQuery) ([]model.ActivityLog, error) {
	return getJSON[[]model.ActivityLog](ctx, s.c, s.path("logs"), q)
}

func (s *AdminService) ListFeatures(ctx context.Context) ([]model.AdvancedFeature, error) {
	return getJSON[[]model.AdvancedFeature](ctx, s.c, s.path("advanced", "features"), nil)
}

func (s *AdminService) UpdateFeature(ctx context.Context, key string, req model.FeatureUpdate) (*model.AdvancedFeature, error) {
	if key == "" {
		return nil, errs.Invalid("key", "required")
	}
	return sendJSON[model.AdvancedFeature](ctx, s.c, http.MethodPut, s.path("advanced", "features", key), req)
}

func (s *AdminService) ListWidgets(ctx context.Context) ([]model.SystemWidget, error) {
	return getJSON[[]model.SystemWidget](ctx, s.c, s.path("system", "widgets"), nil)
}

func (s *AdminService) UpdateWidget(ctx context.Context, key string, req model.WidgetUpdate) (*model.SystemWidget, error) {
	if key == "" {
		return nil, errs.Invalid("key", "required")
	}
	return sendJSON[model.SystemWidget](ctx, s.c, http.MethodPut, s.path("system", "widgets", key), req)
}

type optionalNote model.ReviewRequest

func (optionalNote) Validate() error { return nil }

type requiredNote model.ReviewRequest

func (r requiredNote) Validate() error { return model.ReviewRequest(r).ValidateRequired() }
