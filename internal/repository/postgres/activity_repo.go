package postgres

import (
	"context"
	"fmt"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const activitySelect = `
SELECT a.id, a.title, a.description, a.type, a.location, a.start_at, a.end_at, a.capacity, a.points,
  (SELECT COUNT(*) FROM registrations r WHERE r.activity_id=a.id AND r.status IN ` + seatHolding + `),
  a.status, a.organizer_id, u.display_name, a.review_note, a.cover_url, a.created_at, a.updated_at
FROM activities a
JOIN users u ON u.id=a.organizer_id`

// ActivityRepo implements ActivityRepository using PostgreSQL.
type ActivityRepo struct{ db *DB }

// NewActivityRepo constructs an activity repository.
func NewActivityRepo(db *DB) *ActivityRepo { return &ActivityRepo{db: db} }

func scanActivity(row pgx.Row) (*model.Activity, error) {
	var a model.Activity
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Type, &a.Location, &a.StartAt, &a.EndAt,
		&a.Capacity, &a.Points, &a.RegisteredCount, &a.Status, &a.OrganizerID, &a.OrganizerName,
		&a.ReviewNote, &a.CoverURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// Create inserts an activity row.
func (r *ActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	const q = `
INSERT INTO activities (id, title, description, type, location, start_at, end_at, capacity, points, status, organizer_id, cover_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, a.ID, a.Title, a.Description, a.Type, a.Location, a.StartAt, a.EndAt,
		a.Capacity, a.Points, string(a.Status), a.OrganizerID, a.CoverURL).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID loads one activity.
func (r *ActivityRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	return scanActivity(r.db.Pool.QueryRow(ctx, activitySelect+` WHERE a.id=$1`, id))
}

// List returns activities overlapping [From, To], soonest first.
func (r *ActivityRepo) List(ctx context.Context, q model.ActivityQuery) ([]model.Activity, error) {
	var f filter
	f.like(q.Search, "a.title", "a.description", "a.location")
	if q.Status != "" {
		f.add("a.status=?", string(q.Status))
	}
	if q.Type != "" {
		f.add("a.type=?", q.Type)
	}
	if q.From != nil {
		f.add("a.end_at>=?", *q.From)
	}
	if q.To != nil {
		f.add("a.start_at<=?", *q.To)
	}
	if q.OrganizerID != nil {
		f.add("a.organizer_id=?", *q.OrganizerID)
	}
	sql := activitySelect + f.where() + ` ORDER BY a.start_at ASC, a.id` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanActivity)
}

// Update rewrites content, status and review note.
func (r *ActivityRepo) Update(ctx context.Context, a *model.Activity) error {
	const q = `
UPDATE activities
SET title=$2, description=$3, type=$4, location=$5, start_at=$6, end_at=$7, capacity=$8, points=$9,
    status=$10, review_note=$11, cover_url=$12, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.db.Pool.QueryRow(ctx, q, a.ID, a.Title, a.Description, a.Type, a.Location, a.StartAt, a.EndAt,
		a.Capacity, a.Points, string(a.Status), a.ReviewNote, a.CoverURL).Scan(&a.UpdatedAt)
	return notFound(err)
}

// Transition performs a guarded status change.
func (r *ActivityRepo) Transition(
	ctx context.Context, id uuid.UUID, from []model.ActivityStatus, to model.ActivityStatus, note *string,
) error {
	const q = `
UPDATE activities
SET status=$2, review_note=COALESCE($3, review_note), updated_at=now()
WHERE id=$1 AND status = ANY($4)`
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := r.db.Pool.Exec(ctx, q, id, string(to), note, allowed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return errs.ErrNotFound
	}
	return fmt.Errorf("activity cannot move to %s: %w", to, errs.ErrConflict)
}

// Delete removes an activity and, by cascade, its registrations.
func (r *ActivityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(r.db.Pool.Exec(ctx, `DELETE FROM activities WHERE id=$1`, id))
}
