package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/checkin"
	pkgcrypto "github.com/Nguyentram30/activity-portal/internal/crypto"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const qrCodeBytes = 9

// CheckInService issues QR codes for activities and redeems them.
type CheckInService interface {
	// Issue creates a code for an approved activity the actor manages.
	Issue(ctx context.Context, actor Actor, activityID uuid.UUID) (*model.QRCode, error)
	// CheckIn marks the actor's registration for the code's activity attended.
	CheckIn(ctx context.Context, actor Actor, req model.CheckInRequest) (*model.Registration, error)
}

type CheckInServiceImpl struct {
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	codes         checkin.Store
	features      FeatureChecker
	publicURL     string
	ttl           time.Duration
	audit         auditor
	now           func() time.Time
}

// NewCheckInService constructs CheckInService. Codes live for ttl; check-in links
// point at publicURL.
func NewCheckInService(
	activities repository.ActivityRepository,
	registrations repository.RegistrationRepository,
	codes checkin.Store,
	features FeatureChecker,
	publicURL string,
	ttl time.Duration,
	logs repository.LogRepository,
	log *zap.Logger,
) *CheckInServiceImpl {
	return &CheckInServiceImpl{
		activities:    activities,
		registrations: registrations,
		codes:         codes,
		features:      features,
		publicURL:     strings.TrimRight(publicURL, "/"),
		ttl:           ttl,
		audit:         newAuditor(logs, log),
		now:           time.Now,
	}
}

func (s *CheckInServiceImpl) Issue(ctx context.Context, actor Actor, activityID uuid.UUID) (*model.QRCode, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	if err := requireFeature(ctx, s.features, FeatureQRCheckIn); err != nil {
		return nil, err
	}
	a, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !actor.owns(a.OrganizerID) {
		return nil, errs.ErrForbidden
	}
	if a.Status != model.ActivityApproved {
		return nil, fmt.Errorf("activity is %s: %w", a.Status, errs.ErrConflict)
	}
	code, err := pkgcrypto.NewToken(qrCodeBytes)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Put(ctx, activityID, code, s.ttl); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "activity.qr_code", "activity", activityID.String(), "")
	return &model.QRCode{
		ActivityID: activityID,
		Code:       code,
		CheckInURL: s.publicURL + "/check-in?code=" + url.QueryEscape(code),
		ExpiresAt:  s.now().Add(s.ttl).UTC(),
	}, nil
}

// CheckIn is idempotent: an already attended registration is returned unchanged.
func (s *CheckInServiceImpl) CheckIn(ctx context.Context, actor Actor, req model.CheckInRequest) (*model.Registration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireFeature(ctx, s.features, FeatureQRCheckIn); err != nil {
		return nil, err
	}
	activityID, err := s.codes.Lookup(ctx, strings.TrimSpace(req.Code))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Invalid("code", "unknown or expired")
	}
	if err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByActivityUser(ctx, activityID, actor.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("not registered for this activity: %w", errs.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	switch {
	case reg.Status == model.RegistrationAttended:
		return reg, nil
	case !reg.Status.Active():
		return nil, fmt.Errorf("registration is %s: %w", reg.Status, errs.ErrConflict)
	}
	now := s.now()
	return s.registrations.UpdateStatus(ctx, reg.ID, model.RegistrationAttended, &now)
}
