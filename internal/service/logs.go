package service

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
)

// LogService exposes the audit trail to administrators.
type LogService interface {
	List(ctx context.Context, actor Actor, q model.LogQuery) ([]model.ActivityLog, error)
}

type LogServiceImpl struct {
	logs repository.LogRepository
}

func NewLogService(logs repository.LogRepository) *LogServiceImpl {
	return &LogServiceImpl{logs: logs}
}

func (s *LogServiceImpl) List(ctx context.Context, actor Actor, q model.LogQuery) ([]model.ActivityLog, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.logs.List(ctx, q)
}
