package postgres

import (
	"context"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// seatHolding lists registration statuses that occupy a seat.
const seatHolding = `('registered','approved','attended')`

const userColumns = `id, display_name, email, pwd_hash, role, student_id, faculty, phone, status, created_at, updated_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PwdHash, &u.Role, &u.StudentID, &u.Faculty,
		&u.Phone, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, display_name, email, pwd_hash, role, student_id, faculty, phone, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`
	if u.Status == "" {
		u.Status = model.UserActive
	}
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.DisplayName, u.Email, u.PwdHash, string(u.Role),
		u.StudentID, u.Faculty, u.Phone, string(u.Status)).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// List returns users matching q, newest first.
func (r *UserRepo) List(ctx context.Context, q model.UserQuery) ([]model.User, error) {
	var f filter
	f.like(q.Search, "display_name", "email", "student_id")
	if q.Role != model.RoleUnknown {
		f.add("role=?", string(q.Role))
	}
	if q.Status != "" {
		f.add("status=?", string(q.Status))
	}
	sql := `SELECT ` + userColumns + ` FROM users` + f.where() + ` ORDER BY created_at DESC` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

// Update rewrites profile, role, status and password hash.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users
SET display_name=$2, email=$3, pwd_hash=$4, role=$5, student_id=$6, faculty=$7, phone=$8, status=$9, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.DisplayName, u.Email, u.PwdHash, string(u.Role),
		u.StudentID, u.Faculty, u.Phone, string(u.Status)).Scan(&u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return notFound(err)
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id))
}

// ListStudents returns the student roster. With an activity filter only that
// activity's registrants are listed, along with their registration.
func (r *UserRepo) ListStudents(ctx context.Context, q model.StudentQuery) ([]model.Student, error) {
	var f filter
	var act *uuid.UUID
	if q.ActivityID != nil {
		act = q.ActivityID
	}
	join := f.arg(act)
	f.raw("u.role='student'")
	f.like(q.Search, "u.display_name", "u.email", "u.student_id")
	if q.Faculty != "" {
		f.add("u.faculty=?", q.Faculty)
	}
	if act != nil {
		f.raw("ra.id IS NOT NULL")
	}
	sql := `
SELECT u.id, u.display_name, u.email, u.student_id, u.faculty,
  COUNT(r.id) FILTER (WHERE r.status IN ` + seatHolding + `),
  COUNT(r.id) FILTER (WHERE r.status='attended'),
  MAX(r.created_at),
  ra.status, ra.id
FROM users u
LEFT JOIN registrations r ON r.user_id=u.id
LEFT JOIN registrations ra ON ra.user_id=u.id AND ra.activity_id=` + join + `::uuid` +
		f.where() + `
GROUP BY u.id, ra.status, ra.id
ORDER BY u.display_name` + f.page(q.Paging)
	rows, err := r.db.Pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*model.Student, error) {
		var (
			s     model.Student
			last  *time.Time
			state *string
		)
		if err := row.Scan(&s.ID, &s.DisplayName, &s.Email, &s.StudentID, &s.Faculty,
			&s.Registrations, &s.Attended, &last, &state, &s.RegistrationID); err != nil {
			return nil, err
		}
		s.LastRegisteredAt = last
		if state != nil {
			st := model.RegistrationStatus(*state)
			s.RegistrationState = &st
		}
		return &s, nil
	})
}

// CountByRole returns the number of accounts per role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.Role]int{}
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[model.ParseRole(role)] = n
	}
	return out, rows.Err()
}

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a refresh session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Create(ctx context.Context, s *model.RefreshSession) error {
	const q = `
INSERT INTO refresh_sessions (id, user_id, token_hash, user_agent, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, s.ID, s.UserID, s.TokenHash, s.UserAgent, s.ExpiresAt).Scan(&s.CreatedAt)
}

func (r *SessionRepo) GetByHash(ctx context.Context, hash string) (*model.RefreshSession, error) {
	const q = `
SELECT id, user_id, token_hash, user_agent, created_at, expires_at, revoked_at
FROM refresh_sessions WHERE token_hash=$1 AND revoked_at IS NULL`
	var s model.RefreshSession
	err := r.db.Pool.QueryRow(ctx, q, hash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent,
		&s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SessionRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE refresh_sessions SET revoked_at=now() WHERE id=$1 AND revoked_at IS NULL`
	return execOne(r.db.Pool.Exec(ctx, q, id))
}

func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `UPDATE refresh_sessions SET revoked_at=now() WHERE user_id=$1 AND revoked_at IS NULL`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}
