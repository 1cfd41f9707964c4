package service

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"go.uber.org/zap"
)

// SettingsService manages feature toggles and dashboard widgets.
type SettingsService interface {
	FeatureChecker
	ListFeatures(ctx context.Context, actor Actor) ([]model.AdvancedFeature, error)
	UpdateFeature(ctx context.Context, actor Actor, key string, upd model.FeatureUpdate) (*model.AdvancedFeature, error)
	ListWidgets(ctx context.Context, actor Actor) ([]model.SystemWidget, error)
	UpdateWidget(ctx context.Context, actor Actor, key string, upd model.WidgetUpdate) (*model.SystemWidget, error)
}

type SettingsServiceImpl struct {
	repo  repository.SettingsRepository
	audit auditor
}

// NewSettingsService constructs SettingsService.
func NewSettingsService(repo repository.SettingsRepository, logs repository.LogRepository, log *zap.Logger) *SettingsServiceImpl {
	return &SettingsServiceImpl{repo: repo, audit: newAuditor(logs, log)}
}

// Enabled reports a toggle's state. Unknown keys are off.
func (s *SettingsServiceImpl) Enabled(ctx context.Context, key string) (bool, error) {
	features, err := s.repo.ListFeatures(ctx)
	if err != nil {
		return false, err
	}
	for _, f := range features {
		if f.Key == key {
			return f.Enabled, nil
		}
	}
	return false, nil
}

func (s *SettingsServiceImpl) ListFeatures(ctx context.Context, actor Actor) ([]model.AdvancedFeature, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListFeatures(ctx)
}

func (s *SettingsServiceImpl) UpdateFeature(ctx context.Context, actor Actor, key string, upd model.FeatureUpdate) (*model.AdvancedFeature, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	f, err := s.repo.UpdateFeature(ctx, key, upd)
	if err != nil {
		return nil, err
	}
	detail := "disabled"
	if f.Enabled {
		detail = "enabled"
	}
	s.audit.record(ctx, actor, "feature.update", "feature", key, detail)
	return f, nil
}

// ListWidgets is readable by managers too: their dashboard honours the toggles.
func (s *SettingsServiceImpl) ListWidgets(ctx context.Context, actor Actor) ([]model.SystemWidget, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	return s.repo.ListWidgets(ctx)
}

func (s *SettingsServiceImpl) UpdateWidget(ctx context.Context, actor Actor, key string, upd model.WidgetUpdate) (*model.SystemWidget, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	w, err := s.repo.UpdateWidget(ctx, key, upd)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "widget.update", "widget", key, "")
	return w, nil
}
