// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access to accounts and the student roster.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by case-insensitive email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns users matching q, newest first.
	List(ctx context.Context, q model.UserQuery) ([]model.User, error)
	// Update rewrites the mutable columns of u.
	Update(ctx context.Context, u *model.User) error
	// Delete removes a user.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListStudents returns student accounts with participation counters.
	ListStudents(ctx context.Context, q model.StudentQuery) ([]model.Student, error)
	// CountByRole returns the number of accounts per role.
	CountByRole(ctx context.Context) (map[model.Role]int, error)
}

// SessionRepository stores hashed refresh tokens.
type SessionRepository interface {
	Create(ctx context.Context, s *model.RefreshSession) error
	// GetByHash loads an unrevoked session by token hash.
	GetByHash(ctx context.Context, hash string) (*model.RefreshSession, error)
	// Revoke marks a session revoked; revoking twice yields errs.ErrNotFound.
	Revoke(ctx context.Context, id uuid.UUID) error
	// RevokeAllForUser revokes every live session of a user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// ActivityRepository stores activities.
type ActivityRepository interface {
	Create(ctx context.Context, a *model.Activity) error
	// GetByID loads an activity with organizer name and active registration count.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	List(ctx context.Context, q model.ActivityQuery) ([]model.Activity, error)
	// Update rewrites editable content and status.
	Update(ctx context.Context, a *model.Activity) error
	// Transition moves an activity to status `to` only from one of `from`.
	// It yields errs.ErrConflict when the current status is not in `from`.
	Transition(ctx context.Context, id uuid.UUID, from []model.ActivityStatus, to model.ActivityStatus, note *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RegistrationRepository stores activity registrations.
type RegistrationRepository interface {
	// Create registers a user while enforcing capacity. A full activity yields
	// errs.ErrConflict, an existing active registration errs.ErrAlreadyExists.
	// A cancelled registration is reactivated.
	Create(ctx context.Context, r *model.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	GetByActivityUser(ctx context.Context, activityID, userID uuid.UUID) (*model.Registration, error)
	// ListByUser returns the user's registrations, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error)
	// UpdateStatus sets status and, when checkedInAt is non-nil, the check-in time.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus, checkedInAt *time.Time) (*model.Registration, error)
	// Recent returns the latest registrations, optionally for one organizer's activities.
	Recent(ctx context.Context, organizerID *uuid.UUID, limit int) ([]model.Registration, error)
}

// FeedbackRepository stores post-activity ratings.
type FeedbackRepository interface {
	// Create inserts feedback; a second rating by the same user yields errs.ErrAlreadyExists.
	Create(ctx context.Context, f *model.Feedback) error
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.Feedback, error)
}

// NotificationRepository stores announcements and their delivery state.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	// List returns notifications matching q; createdBy narrows to one author.
	List(ctx context.Context, q model.NotificationQuery, createdBy *uuid.UUID) ([]model.Notification, error)
	Update(ctx context.Context, n *model.Notification) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Due returns scheduled notifications whose time has come, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	// MarkSent flips a scheduled or draft notification to sent.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// Inbox returns sent notifications addressed to a user.
	Inbox(ctx context.Context, userID uuid.UUID, role model.Role, q model.NotificationQuery) ([]model.Notification, error)
}

// DocumentRepository stores published document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, q model.DocumentQuery) ([]model.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository stores feature toggles and dashboard widgets.
type SettingsRepository interface {
	ListFeatures(ctx context.Context) ([]model.AdvancedFeature, error)
	UpdateFeature(ctx context.Context, key string, upd model.FeatureUpdate) (*model.AdvancedFeature, error)
	ListWidgets(ctx context.Context) ([]model.SystemWidget, error)
	UpdateWidget(ctx context.Context, key string, upd model.WidgetUpdate) (*model.SystemWidget, error)
}

// LogRepository is the append-only audit log.
type LogRepository interface {
	Append(ctx context.Context, l *model.ActivityLog) error
	List(ctx context.Context, q model.LogQuery) ([]model.ActivityLog, error)
}

// ReportRepository computes aggregate counters.
type ReportRepository interface {
	// Summary aggregates activities and registrations; organizerID narrows to one manager.
	Summary(ctx context.Context, q model.ReportQuery, organizerID *uuid.UUID) (*model.ReportSummary, error)
	// Overview fills the counter fields of a dashboard overview.
	Overview(ctx context.Context, organizerID *uuid.UUID) (*model.DashboardOverview, error)
}
