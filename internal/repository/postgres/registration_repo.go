package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const registrationSelect = `
SELECT r.id, r.activity_id, a.title, r.user_id, r.status, r.note, r.checked_in_at, r.created_at, r.updated_at
FROM registrations r
JOIN activities a ON a.id=r.activity_id`

// RegistrationRepo implements RegistrationRepository using PostgreSQL.
type RegistrationRepo struct{ db *DB }

// NewRegistrationRepo constructs a registration repository.
func NewRegistrationRepo(db *DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.ActivityID, &reg.ActivityTitle, &reg.UserID, &reg.Status, &reg.Note,
		&reg.CheckedInAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

// Create locks the activity row, checks remaining capacity and inserts the
// registration. A previously cancelled registration is reused.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	const lock = `SELECT title, capacity FROM activities WHERE id=$1 FOR UPDATE`
	const count = `SELECT COUNT(*) FROM registrations WHERE activity_id=$1 AND status IN ` + seatHolding
	const ins = `
INSERT INTO registrations (id, activity_id, user_id, status, note)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (activity_id, user_id) DO UPDATE
SET status=EXCLUDED.status, note=EXCLUDED.note, checked_in_at=NULL, updated_at=now()
WHERE registrations.status='cancelled'
RETURNING id, created_at, updated_at`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		var capacity int
		if err := tx.QueryRow(ctx, lock, reg.ActivityID).Scan(&reg.ActivityTitle, &capacity); err != nil {
			return notFound(err)
		}
		var taken int
		if err := tx.QueryRow(ctx, count, reg.ActivityID).Scan(&taken); err != nil {
			return err
		}
		if capacity > 0 && taken >= capacity {
			return fmt.Errorf("activity is full: %w", errs.ErrConflict)
		}
		err := tx.QueryRow(ctx, ins, reg.ID, reg.ActivityID, reg.UserID, string(reg.Status), reg.Note).
			Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrAlreadyExists
		}
		return err
	})
}

func (r *RegistrationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return scanRegistration(r.db.Pool.QueryRow(ctx, registrationSelect+` WHERE r.id=$1`, id))
}

func (r *RegistrationRepo) GetByActivityUser(ctx context.Context, activityID, userID uuid.UUID) (*model.Registration, error) {
	q := registrationSelect + ` WHERE r.activity_id=$1 AND r.user_id=$2`
	return scanRegistration(r.db.Pool.QueryRow(ctx, q, activityID, userID))
}

func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error) {
	rows, err := r.db.Pool.Query(ctx, registrationSelect+` WHERE r.user_id=$1 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRegistration)
}

// UpdateStatus changes the status and returns the updated registration.
func (r *RegistrationRepo) UpdateStatus(
	ctx context.Context, id uuid.UUID, status model.RegistrationStatus, checkedInAt *time.Time,
) (*model.Registration, error) {
	const q = `
UPDATE registrations
SET status=$2, checked_in_at=COALESCE($3, checked_in_at), updated_at=now()
WHERE id=$1`
	if err := execOne(r.db.Pool.Exec(ctx, q, id, string(status), checkedInAt)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *RegistrationRepo) Recent(ctx context.Context, organizerID *uuid.UUID, limit int) ([]model.Registration, error) {
	var f filter
	if organizerID != nil {
		f.add("a.organizer_id=?", *organizerID)
	}
	q := registrationSelect + f.where() + ` ORDER BY r.created_at DESC LIMIT ` + f.arg(limit)
	rows, err := r.db.Pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRegistration)
}

// FeedbackRepo implements FeedbackRepository using PostgreSQL.
type FeedbackRepo struct{ db *DB }

// NewFeedbackRepo constructs a feedback repository.
func NewFeedbackRepo(db *DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

func (r *FeedbackRepo) Create(ctx context.Context, fb *model.Feedback) error {
	const q = `
INSERT INTO feedbacks (id, activity_id, user_id, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, fb.ID, fb.ActivityID, fb.UserID, fb.Rating, fb.Comment).Scan(&fb.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *FeedbackRepo) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.Feedback, error) {
	const q = `
SELECT f.id, f.activity_id, f.user_id, u.display_name, f.rating, f.comment, f.created_at
FROM feedbacks f
JOIN users u ON u.id=f.user_id
WHERE f.activity_id=$1
ORDER BY f.created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, activityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*model.Feedback, error) {
		var fb model.Feedback
		if err := row.Scan(&fb.ID, &fb.ActivityID, &fb.UserID, &fb.UserName, &fb.Rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		return &fb, nil
	})
}
