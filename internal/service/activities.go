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

// ActivityService covers the public catalogue, student registrations and the
// back-office management of activities.
type ActivityService interface {
	// List returns published activities.
	List(ctx context.Context, q model.ActivityQuery) ([]model.Activity, error)
	// Get returns a published activity, or any activity the actor manages.
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Activity, error)
	Register(ctx context.Context, actor Actor, req model.RegistrationRequest) (*model.Registration, error)
	MyRegistrations(ctx context.Context, actor Actor) ([]model.Registration, error)
	CancelRegistration(ctx context.Context, actor Actor, id uuid.UUID) (*model.Registration, error)
	SubmitFeedback(ctx context.Context, actor Actor, activityID uuid.UUID, in model.FeedbackInput) (*model.Feedback, error)

	// ListManaged lists all activities for admins and the caller's own for managers.
	ListManaged(ctx context.Context, actor Actor, q model.ActivityQuery) ([]model.Activity, error)
	GetManaged(ctx context.Context, actor Actor, id uuid.UUID) (*model.Activity, error)
	Create(ctx context.Context, actor Actor, in model.ActivityInput) (*model.Activity, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in model.ActivityInput) (*model.Activity, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Approve(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error)
	RequestEdit(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error)
	UpdateRegistrationStatus(ctx context.Context, actor Actor, id uuid.UUID, req model.RegistrationStatusUpdate) (*model.Registration, error)
	ListFeedbacks(ctx context.Context, actor Actor, activityID uuid.UUID) ([]model.Feedback, error)
}

type ActivityServiceImpl struct {
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	feedbacks     repository.FeedbackRepository
	features      FeatureChecker
	audit         auditor
	now           func() time.Time
}

// NewActivityService constructs ActivityService. features may be nil.
func NewActivityService(
	activities repository.ActivityRepository,
	registrations repository.RegistrationRepository,
	feedbacks repository.FeedbackRepository,
	logs repository.LogRepository,
	features FeatureChecker,
	log *zap.Logger,
) *ActivityServiceImpl {
	return &ActivityServiceImpl{
		activities:    activities,
		registrations: registrations,
		feedbacks:     feedbacks,
		features:      features,
		audit:         newAuditor(logs, log),
		now:           time.Now,
	}
}

// published statuses are visible to every signed-in user.
func published(s model.ActivityStatus) bool {
	return s == model.ActivityApproved || s == model.ActivityCompleted
}

func (s *ActivityServiceImpl) List(ctx context.Context, q model.ActivityQuery) ([]model.Activity, error) {
	if !published(q.Status) {
		q.Status = model.ActivityApproved
	}
	return s.activities.List(ctx, q)
}

func (s *ActivityServiceImpl) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !published(a.Status) && !actor.owns(a.OrganizerID) {
		return nil, errs.ErrNotFound
	}
	return a, nil
}

// Register enrols the actor in an approved activity that has not ended yet.
func (s *ActivityServiceImpl) Register(ctx context.Context, actor Actor, req model.RegistrationRequest) (*model.Registration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireRole(actor, model.RoleStudent); err != nil {
		return nil, fmt.Errorf("only students register: %w", err)
	}
	a, err := s.activities.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.ActivityApproved {
		return nil, fmt.Errorf("activity is not open for registration: %w", errs.ErrConflict)
	}
	if !s.now().Before(a.EndAt) {
		return nil, fmt.Errorf("activity has ended: %w", errs.ErrConflict)
	}
	if a.Full() {
		return nil, fmt.Errorf("activity is full: %w", errs.ErrConflict)
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	reg := &model.Registration{
		ID:         id,
		ActivityID: a.ID,
		UserID:     actor.ID,
		Status:     model.RegistrationRegistered,
		Note:       trimPtr(req.Note),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("already registered: %w", err)
		}
		return nil, err
	}
	reg.ActivityTitle = a.Title
	return reg, nil
}

func (s *ActivityServiceImpl) MyRegistrations(ctx context.Context, actor Actor) ([]model.Registration, error) {
	return s.registrations.ListByUser(ctx, actor.ID)
}

// CancelRegistration withdraws the actor's own registration before attendance.
func (s *ActivityServiceImpl) CancelRegistration(ctx context.Context, actor Actor, id uuid.UUID) (*model.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.UserID != actor.ID {
		return nil, errs.ErrNotFound
	}
	switch reg.Status {
	case model.RegistrationCancelled:
		return reg, nil
	case model.RegistrationAttended:
		return nil, fmt.Errorf("attendance already recorded: %w", errs.ErrConflict)
	}
	return s.registrations.UpdateStatus(ctx, id, model.RegistrationCancelled, nil)
}

// SubmitFeedback accepts one rating per participant, after attendance or once
// the activity has ended.
func (s *ActivityServiceImpl) SubmitFeedback(
	ctx context.Context, actor Actor, activityID uuid.UUID, in model.FeedbackInput,
) (*model.Feedback, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := requireFeature(ctx, s.features, FeatureFeedback); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByActivityUser(ctx, activityID, actor.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("not a participant: %w", errs.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationAttended {
		a, err := s.activities.GetByID(ctx, activityID)
		if err != nil {
			return nil, err
		}
		if !reg.Status.Active() || s.now().Before(a.EndAt) {
			return nil, fmt.Errorf("feedback opens after the activity: %w", errs.ErrConflict)
		}
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	fb := &model.Feedback{
		ID:         id,
		ActivityID: activityID,
		UserID:     actor.ID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
	}
	if err := s.feedbacks.Create(ctx, fb); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("feedback already submitted: %w", err)
		}
		return nil, err
	}
	return fb, nil
}

func (s *ActivityServiceImpl) ListManaged(ctx context.Context, actor Actor, q model.ActivityQuery) ([]model.Activity, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	if scope := actor.scope(); scope != nil {
		q.OrganizerID = scope
	}
	return s.activities.List(ctx, q)
}

// GetManaged loads an activity the actor may manage.
func (s *ActivityServiceImpl) GetManaged(ctx context.Context, actor Actor, id uuid.UUID) (*model.Activity, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(a.OrganizerID) {
		return nil, errs.ErrForbidden
	}
	return a, nil
}

// Create stores a new activity. Admin-created activities are published at once;
// manager-created ones wait for approval.
func (s *ActivityServiceImpl) Create(ctx context.Context, actor Actor, in model.ActivityInput) (*model.Activity, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	a := &model.Activity{ID: id, OrganizerID: actor.ID, Status: model.ActivityPending}
	if actor.IsAdmin() {
		a.Status = model.ActivityApproved
	}
	applyInput(a, in)
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "activity.create", "activity", a.ID.String(), a.Title)
	return s.activities.GetByID(ctx, a.ID)
}

// Update replaces the editable content. A manager's edit sends the activity back
// to moderation.
func (s *ActivityServiceImpl) Update(ctx context.Context, actor Actor, id uuid.UUID, in model.ActivityInput) (*model.Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a, err := s.GetManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.ActivityCancelled || a.Status == model.ActivityCompleted {
		return nil, fmt.Errorf("activity is %s: %w", a.Status, errs.ErrConflict)
	}
	if in.Capacity > 0 && in.Capacity < a.RegisteredCount {
		return nil, errs.Invalid("capacity", fmt.Sprintf("below current registrations (%d)", a.RegisteredCount))
	}
	applyInput(a, in)
	if !actor.IsAdmin() {
		a.Status = model.ActivityPending
	}
	if err := s.activities.Update(ctx, a); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "activity.update", "activity", a.ID.String(), a.Title)
	return s.activities.GetByID(ctx, a.ID)
}

func (s *ActivityServiceImpl) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	a, err := s.GetManaged(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.activities.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.record(ctx, actor, "activity.delete", "activity", id.String(), a.Title)
	return nil
}

func (s *ActivityServiceImpl) Approve(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	return s.moderate(ctx, actor, id, "activity.approve", model.ActivityApproved, optional(req.Note),
		model.ActivityPending, model.ActivityEditRequested, model.ActivityRejected)
}

func (s *ActivityServiceImpl) Reject(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	if err := req.ValidateRequired(); err != nil {
		return nil, err
	}
	return s.moderate(ctx, actor, id, "activity.reject", model.ActivityRejected, optional(req.Note),
		model.ActivityPending, model.ActivityEditRequested, model.ActivityApproved)
}

func (s *ActivityServiceImpl) RequestEdit(ctx context.Context, actor Actor, id uuid.UUID, req model.ReviewRequest) (*model.Activity, error) {
	if err := req.ValidateRequired(); err != nil {
		return nil, err
	}
	return s.moderate(ctx, actor, id, "activity.request_edit", model.ActivityEditRequested, optional(req.Note),
		model.ActivityPending, model.ActivityApproved)
}

func (s *ActivityServiceImpl) moderate(
	ctx context.Context, actor Actor, id uuid.UUID, action string,
	to model.ActivityStatus, note *string, from ...model.ActivityStatus,
) (*model.Activity, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.activities.Transition(ctx, id, from, to, note); err != nil {
		return nil, err
	}
	detail := ""
	if note != nil {
		detail = *note
	}
	s.audit.record(ctx, actor, action, "activity", id.String(), detail)
	return s.activities.GetByID(ctx, id)
}

// UpdateRegistrationStatus lets the organizer (or an admin) approve, reject or
// mark attendance. Marking attendance stamps the check-in time.
func (s *ActivityServiceImpl) UpdateRegistrationStatus(
	ctx context.Context, actor Actor, id uuid.UUID, req model.RegistrationStatusUpdate,
) (*model.Registration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetManaged(ctx, actor, reg.ActivityID); err != nil {
		return nil, err
	}
	var at *time.Time
	if req.Status == model.RegistrationAttended && reg.CheckedInAt == nil {
		now := s.now()
		at = &now
	}
	out, err := s.registrations.UpdateStatus(ctx, id, req.Status, at)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "registration.status", "registration", id.String(), string(req.Status))
	return out, nil
}

func (s *ActivityServiceImpl) ListFeedbacks(ctx context.Context, actor Actor, activityID uuid.UUID) ([]model.Feedback, error) {
	if _, err := s.GetManaged(ctx, actor, activityID); err != nil {
		return nil, err
	}
	return s.feedbacks.ListByActivity(ctx, activityID)
}

func applyInput(a *model.Activity, in model.ActivityInput) {
	a.Title = strings.TrimSpace(in.Title)
	a.Description = strings.TrimSpace(in.Description)
	a.Type = strings.TrimSpace(in.Type)
	a.Location = strings.TrimSpace(in.Location)
	a.StartAt = in.StartAt.UTC()
	a.EndAt = in.EndAt.UTC()
	a.Capacity = in.Capacity
	a.Points = in.Points
	a.CoverURL = trimPtr(in.CoverURL)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
