package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgcrypto "github.com/Nguyentram30/activity-portal/internal/crypto"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const csvContentType = "text/csv; charset=utf-8"

// UserService manages accounts and the student roster.
type UserService interface {
	List(ctx context.Context, actor Actor, q model.UserQuery) ([]model.User, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, actor Actor, req model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	// Students lists the roster; an activity filter must name an activity the actor manages.
	Students(ctx context.Context, actor Actor, q model.StudentQuery) ([]model.Student, error)
	// ExportStudents renders every roster row matching q as CSV.
	ExportStudents(ctx context.Context, actor Actor, q model.StudentQuery) (*model.Blob, error)
}

type UserServiceImpl struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	activities repository.ActivityRepository
	audit      auditor
	now        func() time.Time
}

// NewUserService constructs UserService.
func NewUserService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	activities repository.ActivityRepository,
	logs repository.LogRepository,
	log *zap.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		users:      users,
		sessions:   sessions,
		activities: activities,
		audit:      newAuditor(logs, log),
		now:        time.Now,
	}
}

func (s *UserServiceImpl) List(ctx context.Context, actor Actor, q model.UserQuery) ([]model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.List(ctx, q)
}

func (s *UserServiceImpl) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserServiceImpl) Create(ctx context.Context, actor Actor, req model.CreateUserRequest) (*model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := newUser(req.DisplayName, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	u.StudentID, u.Faculty, u.Phone = trimPtr(req.StudentID), trimPtr(req.Faculty), trimPtr(req.Phone)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("email already registered: %w", err)
		}
		return nil, err
	}
	s.audit.record(ctx, actor, "user.create", "user", u.ID.String(), string(u.Role))
	return u, nil
}

// Update patches an account. Locking it or changing its password or role revokes
// every refresh session.
func (s *UserServiceImpl) Update(ctx context.Context, actor Actor, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if id == actor.ID && ((req.Role != nil && *req.Role != model.RoleAdmin) || (req.Status != nil && *req.Status == model.UserLocked)) {
		return nil, fmt.Errorf("cannot demote or lock yourself: %w", errs.ErrConflict)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	revoke := false
	if req.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		if u.PwdHash, err = pkgcrypto.HashPassword(*req.Password); err != nil {
			return nil, err
		}
		revoke = true
	}
	if req.Role != nil && *req.Role != u.Role {
		u.Role = *req.Role
		revoke = true
	}
	if req.Status != nil && *req.Status != u.Status {
		u.Status = *req.Status
		revoke = revoke || u.Status == model.UserLocked
	}
	if req.StudentID != nil {
		u.StudentID = trimPtr(req.StudentID)
	}
	if req.Faculty != nil {
		u.Faculty = trimPtr(req.Faculty)
	}
	if req.Phone != nil {
		u.Phone = trimPtr(req.Phone)
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("email already registered: %w", err)
		}
		return nil, err
	}
	if revoke {
		if err := s.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	s.audit.record(ctx, actor, "user.update", "user", u.ID.String(), "")
	return u, nil
}

func (s *UserServiceImpl) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return err
	}
	if id == actor.ID {
		return fmt.Errorf("cannot delete yourself: %w", errs.ErrConflict)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.record(ctx, actor, "user.delete", "user", id.String(), "")
	return nil
}

func (s *UserServiceImpl) Students(ctx context.Context, actor Actor, q model.StudentQuery) ([]model.Student, error) {
	if err := s.checkRoster(ctx, actor, q); err != nil {
		return nil, err
	}
	return s.users.ListStudents(ctx, q)
}

func (s *UserServiceImpl) checkRoster(ctx context.Context, actor Actor, q model.StudentQuery) error {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return err
	}
	if q.ActivityID == nil || actor.IsAdmin() {
		return nil
	}
	a, err := s.activities.GetByID(ctx, *q.ActivityID)
	if err != nil {
		return err
	}
	if !actor.owns(a.OrganizerID) {
		return errs.ErrForbidden
	}
	return nil
}

func (s *UserServiceImpl) ExportStudents(ctx context.Context, actor Actor, q model.StudentQuery) (*model.Blob, error) {
	if err := s.checkRoster(ctx, actor, q); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"student_id", "name", "email", "faculty", "registrations", "attended", "last_registered_at", "registration_status"})

	q.Paging = model.Paging{Page: 1, Limit: model.MaxPageSize}
	for {
		page, err := s.users.ListStudents(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, st := range page {
			_ = w.Write([]string{
				deref(st.StudentID),
				st.DisplayName,
				st.Email,
				deref(st.Faculty),
				strconv.Itoa(st.Registrations),
				strconv.Itoa(st.Attended),
				formatTime(st.LastRegisteredAt),
				derefStatus(st.RegistrationState),
			})
		}
		if len(page) < model.MaxPageSize {
			break
		}
		q.Page++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &model.Blob{
		FileName:    "students-" + s.now().UTC().Format("20060102") + ".csv",
		ContentType: csvContentType,
		Data:        buf.Bytes(),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefStatus(s *model.RegistrationStatus) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
