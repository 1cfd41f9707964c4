package postgres

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/jackc/pgx/v5"
)

// SettingsRepo implements SettingsRepository using PostgreSQL.
type SettingsRepo struct{ db *DB }

// NewSettingsRepo constructs a settings repository.
func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

func scanFeature(row pgx.Row) (*model.AdvancedFeature, error) {
	var f model.AdvancedFeature
	if err := row.Scan(&f.Key, &f.Name, &f.Description, &f.Enabled, &f.Config, &f.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func scanWidget(row pgx.Row) (*model.SystemWidget, error) {
	var w model.SystemWidget
	if err := row.Scan(&w.Key, &w.Title, &w.Enabled, &w.Position, &w.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *SettingsRepo) ListFeatures(ctx context.Context) ([]model.AdvancedFeature, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT key, name, description, enabled, config, updated_at FROM feature_flags ORDER BY key`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFeature)
}

// UpdateFeature applies the non-nil fields of upd.
func (r *SettingsRepo) UpdateFeature(ctx context.Context, key string, upd model.FeatureUpdate) (*model.AdvancedFeature, error) {
	const q = `
UPDATE feature_flags
SET enabled=COALESCE($2, enabled), config=COALESCE($3::jsonb, config), updated_at=now()
WHERE key=$1
RETURNING key, name, description, enabled, config, updated_at`
	var cfg any
	if upd.Config != nil {
		cfg = upd.Config
	}
	return scanFeature(r.db.Pool.QueryRow(ctx, q, key, upd.Enabled, cfg))
}

func (r *SettingsRepo) ListWidgets(ctx context.Context) ([]model.SystemWidget, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT key, title, enabled, position, updated_at FROM system_widgets ORDER BY position, key`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanWidget)
}

// UpdateWidget applies the non-nil fields of upd.
func (r *SettingsRepo) UpdateWidget(ctx context.Context, key string, upd model.WidgetUpdate) (*model.SystemWidget, error) {
	const q = `
UPDATE system_widgets
SET enabled=COALESCE($2, enabled), title=COALESCE($3, title), position=COALESCE($4, position), updated_at=now()
WHERE key=$1
RETURNING key, title, enabled, position, updated_at`
	return scanWidget(r.db.Pool.QueryRow(ctx, q, key, upd.Enabled, upd.Title, upd.Position))
}
