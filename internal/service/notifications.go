package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const dispatchBatch = 100

// NotificationService manages announcements and their delivery.
type NotificationService interface {
	List(ctx context.Context, actor Actor, q model.NotificationQuery) ([]model.Notification, error)
	Create(ctx context.Context, actor Actor, in model.NotificationInput) (*model.Notification, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in model.NotificationInput) (*model.Notification, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	// Schedule sets the delivery time. A time that has already passed sends at once.
	Schedule(ctx context.Context, actor Actor, id uuid.UUID, req model.ScheduleRequest) (*model.Notification, error)
	// DispatchDue sends every scheduled notification due at now and reports how many.
	DispatchDue(ctx context.Context, now time.Time) (int, error)
	// Inbox lists sent notifications addressed to the actor.
	Inbox(ctx context.Context, actor Actor, q model.NotificationQuery) ([]model.Notification, error)
}

type NotificationServiceImpl struct {
	notifications repository.NotificationRepository
	activities    repository.ActivityRepository
	audit         auditor
	log           *zap.Logger
	now           func() time.Time
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(
	notifications repository.NotificationRepository,
	activities repository.ActivityRepository,
	logs repository.LogRepository,
	log *zap.Logger,
) *NotificationServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationServiceImpl{
		notifications: notifications,
		activities:    activities,
		audit:         newAuditor(logs, log),
		log:           log,
		now:           time.Now,
	}
}

func (s *NotificationServiceImpl) List(ctx context.Context, actor Actor, q model.NotificationQuery) ([]model.Notification, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	return s.notifications.List(ctx, q, actor.scope())
}

// checkAudience limits managers to students and their own activities.
func (s *NotificationServiceImpl) checkAudience(ctx context.Context, actor Actor, in model.NotificationInput) error {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return err
	}
	if in.Audience == model.AudienceActivity {
		a, err := s.activities.GetByID(ctx, *in.ActivityID)
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Invalid("activityId", "unknown activity")
		}
		if err != nil {
			return err
		}
		if !actor.owns(a.OrganizerID) {
			return errs.ErrForbidden
		}
		return nil
	}
	if !actor.IsAdmin() && in.Audience != model.AudienceStudents {
		return errs.Invalid("audience", "managers may address students or their own activities")
	}
	return nil
}

func (s *NotificationServiceImpl) Create(ctx context.Context, actor Actor, in model.NotificationInput) (*model.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAudience(ctx, actor, in); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	n := &model.Notification{ID: id, Status: model.NotificationDraft, CreatedBy: actor.ID}
	applyNotification(n, in)
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "notification.create", "notification", n.ID.String(), n.Title)
	return n, nil
}

// editable loads a notification the actor created (any, for admins) that is not sent yet.
func (s *NotificationServiceImpl) editable(ctx context.Context, actor Actor, id uuid.UUID) (*model.Notification, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(n.CreatedBy) {
		return nil, errs.ErrForbidden
	}
	if n.Status == model.NotificationSent {
		return nil, fmt.Errorf("notification already sent: %w", errs.ErrConflict)
	}
	return n, nil
}

func (s *NotificationServiceImpl) Update(ctx context.Context, actor Actor, id uuid.UUID, in model.NotificationInput) (*model.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAudience(ctx, actor, in); err != nil {
		return nil, err
	}
	applyNotification(n, in)
	if err := s.notifications.Update(ctx, n); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "notification.update", "notification", n.ID.String(), n.Title)
	return n, nil
}

// Delete removes a notification. Sent notifications can be deleted too.
func (s *NotificationServiceImpl) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return err
	}
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.owns(n.CreatedBy) {
		return errs.ErrForbidden
	}
	if err := s.notifications.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.record(ctx, actor, "notification.delete", "notification", id.String(), n.Title)
	return nil
}

func (s *NotificationServiceImpl) Schedule(ctx context.Context, actor Actor, id uuid.UUID, req model.ScheduleRequest) (*model.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	at := req.ScheduledAt.UTC()
	n.ScheduledAt = &at
	n.Status = model.NotificationScheduled
	if now := s.now(); !at.After(now) {
		n.Status = model.NotificationSent
		n.SentAt = &now
	}
	if err := s.notifications.Update(ctx, n); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "notification.schedule", "notification", n.ID.String(), at.Format(time.RFC3339))
	return n, nil
}

// DispatchDue marks due notifications sent in batches. A notification sent
// concurrently by another instance is skipped.
func (s *NotificationServiceImpl) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	sent := 0
	for {
		due, err := s.notifications.Due(ctx, now, dispatchBatch)
		if err != nil {
			return sent, err
		}
		for _, n := range due {
			err := s.notifications.MarkSent(ctx, n.ID, now)
			switch {
			case err == nil:
				sent++
				s.log.Info("notification sent",
					zap.String("id", n.ID.String()),
					zap.String("audience", string(n.Audience)),
				)
			case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrNotFound):
			default:
				return sent, err
			}
		}
		if len(due) < dispatchBatch {
			return sent, nil
		}
	}
}

func (s *NotificationServiceImpl) Inbox(ctx context.Context, actor Actor, q model.NotificationQuery) ([]model.Notification, error) {
	return s.notifications.Inbox(ctx, actor.ID, actor.Role, q)
}

func applyNotification(n *model.Notification, in model.NotificationInput) {
	n.Title = strings.TrimSpace(in.Title)
	n.Body = strings.TrimSpace(in.Body)
	n.Audience = in.Audience
	n.ActivityID = nil
	if in.Audience == model.AudienceActivity {
		id := *in.ActivityID
		n.ActivityID = &id
	}
}
