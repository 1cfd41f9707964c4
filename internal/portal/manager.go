package portal

import (
	"context"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ManagerService covers /manager. Activities listed here are the caller's own.
type ManagerService struct {
	backOffice
}

func NewManagerService(c *apiclient.Client) *ManagerService {
	return &ManagerService{backOffice{c: c, prefix: "manager"}}
}

// UpdateRegistrationStatus approves, rejects or marks attendance for a registration
// on one of the caller's activities.
func (s *ManagerService) UpdateRegistrationStatus(ctx context.Context, id uuid.UUID, req model.RegistrationStatusUpdate) (*model.Registration, error) {
	return sendJSON[model.Registration](ctx, s.c, http.MethodPut, s.path("registrations", id.String(), "status"), req)
}

func (s *ManagerService) ListFeedbacks(ctx context.Context, activityID uuid.UUID) ([]model.Feedback, error) {
	return getJSON[[]model.Feedback](ctx, s.c, s.path("activities", activityID.String(), "feedbacks"), nil)
}

// IssueQRCode creates a short-lived check-in code for an activity.
func (s *ManagerService) IssueQRCode(ctx context.Context, activityID uuid.UUID) (*model.QRCode, error) {
	var out model.QRCode
	if err := s.c.Do(ctx, http.MethodPost, s.path("activities", activityID.String(), "qr-code"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
