// Package service contains the portal's application services: authentication,
// activities and registrations, accounts, notifications, documents, reports,
// settings and QR check-in.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a service method.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// owns reports whether the actor may manage a record created by ownerID.
func (a Actor) owns(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.ID == ownerID
}

// scope narrows back-office listings: admins see everything, managers their own.
func (a Actor) scope() *uuid.UUID {
	if a.IsAdmin() {
		return nil
	}
	id := a.ID
	return &id
}

func requireRole(a Actor, roles ...model.Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return errs.ErrForbidden
}

// FeatureChecker answers whether an advanced feature toggle is on.
type FeatureChecker interface {
	Enabled(ctx context.Context, key string) (bool, error)
}

// Feature keys seeded by the migrations.
const (
	FeatureQRCheckIn  = "qr_checkin"
	FeatureFeedback   = "feedback"
	FeatureSelfSignup = "self_signup"
)

func requireFeature(ctx context.Context, f FeatureChecker, key string) error {
	if f == nil {
		return nil
	}
	on, err := f.Enabled(ctx, key)
	if err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("feature %s is disabled: %w", key, errs.ErrForbidden)
	}
	return nil
}

func newID() (uuid.UUID, error) { return uuid.NewV4() }

// auditor appends audit entries. Failures are logged and never fail the caller.
type auditor struct {
	logs repository.LogRepository
	log  *zap.Logger
	now  func() time.Time
}

func newAuditor(logs repository.LogRepository, log *zap.Logger) auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return auditor{logs: logs, log: log, now: time.Now}
}

func (a auditor) record(ctx context.Context, actor Actor, action, targetType, targetID, detail string) {
	if a.logs == nil {
		return
	}
	id, err := newID()
	if err != nil {
		a.log.Warn("audit id", zap.Error(err))
		return
	}
	entry := &model.ActivityLog{
		ID:         id,
		ActorID:    actor.ID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  a.now(),
	}
	if err := a.logs.Append(ctx, entry); err != nil {
		a.log.Warn("audit append failed",
			zap.String("action", action),
			zap.String("target", targetType+":"+targetID),
			zap.Error(err),
		)
	}
}
