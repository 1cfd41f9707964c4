package portal

import (
	"context"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// backOffice holds the endpoints that exist under both /admin and /manager.
type backOffice struct {
	c      *apiclient.Client
	prefix string
}

func (b backOffice) path(parts ...string) string {
	return join(append([]string{b.prefix}, parts...)...)
}

func (b backOffice) ListActivities(ctx context.Context, q *model.ActivityQuery) ([]model.Activity, error) {
	return getJSON[[]model.Activity](ctx, b.c, b.path("activities"), q)
}

func (b backOffice) GetActivity(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var a model.Activity
	if err := b.c.Do(ctx, http.MethodGet, b.path("activities", id.String()), nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (b backOffice) CreateActivity(ctx context.Context, in model.ActivityInput) (*model.Activity, error) {
	return sendJSON[model.Activity](ctx, b.c, http.MethodPost, b.path("activities"), in)
}

func (b backOffice) UpdateActivity(ctx context.Context, id uuid.UUID, in model.ActivityInput) (*model.Activity, error) {
	return sendJSON[model.Activity](ctx, b.c, http.MethodPut, b.path("activities", id.String()), in)
}

func (b backOffice) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return b.c.Do(ctx, http.MethodDelete, b.path("activities", id.String()), nil, nil, nil)
}

// ListStudents returns the student roster, optionally narrowed to one activity.
func (b backOffice) ListStudents(ctx context.Context, q *model.StudentQuery) ([]model.Student, error) {
	return getJSON[[]model.Student](ctx, b.c, b.path("students"), q)
}

// ExportStudents downloads the roster as CSV.
func (b backOffice) ExportStudents(ctx context.Context, q *model.StudentQuery) (*model.Blob, error) {
	return b.c.Download(ctx, b.path("students", "export"), values(q))
}

func (b backOffice) ListNotifications(ctx context.Context, q *model.NotificationQuery) ([]model.Notification, error) {
	return getJSON[[]model.Notification](ctx, b.c, b.path("notifications"), q)
}

func (b backOffice) CreateNotification(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	return sendJSON[model.Notification](ctx, b.c, http.MethodPost, b.path("notifications"), in)
}

func (b backOffice) UpdateNotification(ctx context.Context, id uuid.UUID, in model.NotificationInput) (*model.Notification, error) {
	return sendJSON[model.Notification](ctx, b.c, http.MethodPut, b.path("notifications", id.String()), in)
}

func (b backOffice) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	return b.c.Do(ctx, http.MethodDelete, b.path("notifications", id.String()), nil, nil, nil)
}

// ScheduleNotification sets the delivery time; the dispatcher sends it when due.
func (b backOffice) ScheduleNotification(ctx context.Context, id uuid.UUID, req model.ScheduleRequest) (*model.Notification, error) {
	return sendJSON[model.Notification](ctx, b.c, http.MethodPost, b.path("notifications", id.String(), "schedule"), req)
}

func (b backOffice) ReportSummary(ctx context.Context, q *model.ReportQuery) (*model.ReportSummary, error) {
	var out model.ReportSummary
	if err := b.c.Do(ctx, http.MethodGet, b.path("reports", "summary"), values(q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b backOffice) ExportReport(ctx context.Context, q *model.ReportQuery) (*model.Blob, error) {
	return b.c.Download(ctx, b.path("reports", "export"), values(q))
}

func (b backOffice) DashboardOverview(ctx context.Context) (*model.DashboardOverview, error) {
	var out model.DashboardOverview
	if err := b.c.Do(ctx, http.MethodGet, b.path("dashboard"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload stores a file (cover image, attachment) and returns its public URL.
func (b backOffice) Upload(ctx context.Context, req UploadRequest) (*model.UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out model.UploadResult
	if err := b.c.Upload(ctx, b.path("upload"), req.File, req.fields(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
