package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `n.id, n.title, n.body, n.audience, n.activity_id, n.status, n.scheduled_at, n.sent_at, n.created_by, n.created_at, n.updated_at`

// NotificationRepo implements NotificationRepository using PostgreSQL.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.Title, &n.Body, &n.Audience, &n.ActivityID, &n.Status, &n.ScheduledAt,
		&n.SentAt, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `
INSERT INTO notifications (id, title, body, audience, activity_id, status, scheduled_at, sent_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, n.ID, n.Title, n.Body, string(n.Audience), n.ActivityID, string(n.Status),
		n.ScheduledAt, n.SentAt, n.CreatedBy).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications n WHERE n.id=$1`
	return scanNotification(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *NotificationRepo) List(ctx context.Context, q model.NotificationQuery, createdBy *uuid.UUID) ([]model.Notification, error) {
	var f filter
	f.like(q.Search, "n.title", "n.body")
	if q.Status != "" {
		f.add("n.status=?", string(q.Status))
	}
	if q.Audience != "" {
		f.add("n.audience=?", string(q.Audience))
	}
	if createdBy != nil {
		f.add("n.created_by=?", *createdBy)
	}
	sql := `SELECT ` + notificationColumns + ` FROM notifications n` + f.where() +
		` ORDER BY n.created_at DESC` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNotification)
}

func (r *NotificationRepo) Update(ctx context.Context, n *model.Notification) error {
	const q = `
UPDATE notifications
SET title=$2, body=$3, audience=$4, activity_id=$5, status=$6, scheduled_at=$7, sent_at=$8, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.db.Pool.QueryRow(ctx, q, n.ID, n.Title, n.Body, string(n.Audience), n.ActivityID, string(n.Status),
		n.ScheduledAt, n.SentAt).Scan(&n.UpdatedAt)
	return notFound(err)
}

func (r *NotificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(r.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id))
}

func (r *NotificationRepo) Due(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications n
WHERE n.status='scheduled' AND n.scheduled_at<=$1
ORDER BY n.scheduled_at ASC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNotification)
}

// MarkSent fails with errs.ErrConflict when the notification was already sent.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE notifications SET status='sent', sent_at=$2, updated_at=now() WHERE id=$1 AND status<>'sent'`
	err := execOne(r.db.Pool.Exec(ctx, q, id, at))
	if errors.Is(err, errs.ErrNotFound) {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return errs.ErrConflict
	}
	return err
}

// Inbox selects sent notifications whose audience covers the user. Activity
// notifications reach that activity's registrants and its organizer.
func (r *NotificationRepo) Inbox(
	ctx context.Context, userID uuid.UUID, role model.Role, q model.NotificationQuery,
) ([]model.Notification, error) {
	var f filter
	uid, rl := f.arg(userID), f.arg(string(role))
	f.raw("n.status='sent'")
	f.raw(`(n.audience='all'
  OR (n.audience='students' AND ` + rl + `='student')
  OR (n.audience='managers' AND ` + rl + ` IN ('manager','admin'))
  OR (n.audience='activity' AND (
       EXISTS (SELECT 1 FROM registrations r WHERE r.activity_id=n.activity_id AND r.user_id=` + uid + ` AND r.status IN ` + seatHolding + `)
    OR EXISTS (SELECT 1 FROM activities a WHERE a.id=n.activity_id AND a.organizer_id=` + uid + `))))`)
	f.like(q.Search, "n.title", "n.body")
	if q.Audience != "" {
		f.add("n.audience=?", string(q.Audience))
	}
	sql := `SELECT ` + notificationColumns + ` FROM notifications n` + f.where() +
		` ORDER BY n.sent_at DESC` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNotification)
}

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ db *DB }

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

const documentColumns = `id, title, file_name, file_url, content_type, size, uploaded_by, created_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	err := row.Scan(&d.ID, &d.Title, &d.FileName, &d.FileURL, &d.ContentType, &d.Size, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	const q = `
INSERT INTO documents (id, title, file_name, file_url, content_type, size, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, d.ID, d.Title, d.FileName, d.FileURL, d.ContentType, d.Size, d.UploadedBy).
		Scan(&d.CreatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return scanDocument(r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id))
}

func (r *DocumentRepo) List(ctx context.Context, q model.DocumentQuery) ([]model.Document, error) {
	var f filter
	f.like(q.Search, "title", "file_name")
	sql := `SELECT ` + documentColumns + ` FROM documents` + f.where() + ` ORDER BY created_at DESC` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDocument)
}

func (r *DocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id))
}

// LogRepo implements LogRepository using PostgreSQL.
type LogRepo struct{ db *DB }

// NewLogRepo constructs an audit log repository.
func NewLogRepo(db *DB) *LogRepo { return &LogRepo{db: db} }

func (r *LogRepo) Append(ctx context.Context, l *model.ActivityLog) error {
	const q = `
INSERT INTO activity_logs (id, actor_id, action, target_type, target_id, detail)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, l.ID, l.ActorID, l.Action, l.TargetType, l.TargetID, l.Detail).Scan(&l.CreatedAt)
}

func (r *LogRepo) List(ctx context.Context, q model.LogQuery) ([]model.ActivityLog, error) {
	var f filter
	if q.Action != "" {
		f.add("action=?", q.Action)
	}
	if q.ActorID != nil {
		f.add("actor_id=?", *q.ActorID)
	}
	sql := `SELECT id, actor_id, action, target_type, target_id, detail, created_at FROM activity_logs` +
		f.where() + ` ORDER BY created_at DESC` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*model.ActivityLog, error) {
		var l model.ActivityLog
		if err := row.Scan(&l.ID, &l.ActorID, &l.Action, &l.TargetType, &l.TargetID, &l.Detail, &l.CreatedAt); err != nil {
			return nil, err
		}
		return &l, nil
	})
}
