package portal

import (
	"context"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ActivityService is the student-facing catalogue: browsing, registration,
// check-in, feedback and the notification inbox.
type ActivityService struct{ c *apiclient.Client }

func NewActivityService(c *apiclient.Client) *ActivityService { return &ActivityService{c: c} }

// List returns approved activities in server order. q may be nil.
func (s *ActivityService) List(ctx context.Context, q *model.ActivityQuery) ([]model.Activity, error) {
	return getJSON[[]model.Activity](ctx, s.c, "/activities", q)
}

func (s *ActivityService) Get(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var a model.Activity
	if err := s.c.Do(ctx, http.MethodGet, join("activities", id.String()), nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *ActivityService) Register(ctx context.Context, req model.RegistrationRequest) (*model.Registration, error) {
	return sendJSON[model.Registration](ctx, s.c, http.MethodPost, "/registrations", req)
}

func (s *ActivityService) MyRegistrations(ctx context.Context) ([]model.Registration, error) {
	return getJSON[[]model.Registration](ctx, s.c, "/registrations/me", nil)
}

// CancelRegistration withdraws one of the caller's registrations.
func (s *ActivityService) CancelRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	var r model.Registration
	if err := s.c.Do(ctx, http.MethodDelete, join("registrations", id.String()), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CheckIn redeems a QR code and returns the attended registration.
func (s *ActivityService) CheckIn(ctx context.Context, req model.CheckInRequest) (*model.Registration, error) {
	return sendJSON[model.Registration](ctx, s.c, http.MethodPost, "/registrations/check-in", req)
}

func (s *ActivityService) SubmitFeedback(ctx context.Context, activityID uuid.UUID, in model.FeedbackInput) (*model.Feedback, error) {
	return sendJSON[model.Feedback](ctx, s.c, http.MethodPost, join("activities", activityID.String(), "feedbacks"), in)
}

// Notifications lists sent notifications addressed to the caller.
func (s *ActivityService) Notifications(ctx context.Context, q *model.NotificationQuery) ([]model.Notification, error) {
	return getJSON[[]model.Notification](ctx, s.c, "/notifications", q)
}
