package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/limiter"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*model.User
	students []model.Student

	createErr    error
	studentQuery []model.StudentQuery
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uuid.UUID]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if strings.EqualFold(x.Email, u.Email) {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) List(context.Context, model.UserQuery) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// ListStudents pages through the preset roster.
func (f *fakeUsers) ListStudents(_ context.Context, q model.StudentQuery) ([]model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studentQuery = append(f.studentQuery, q)
	off, lim := q.Offset()
	if off >= len(f.students) {
		return []model.Student{}, nil
	}
	end := off + lim
	if end > len(f.students) {
		end = len(f.students)
	}
	return append([]model.Student(nil), f.students[off:end]...), nil
}

func (f *fakeUsers) CountByRole(context.Context) (map[model.Role]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.Role]int{}
	for _, u := range f.byID {
		out[u.Role]++
	}
	return out, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*model.RefreshSession
	revokeAll []uuid.UUID
}

var _ repository.SessionRepository = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[uuid.UUID]*model.RefreshSession{}}
}

func (f *fakeSessions) Create(_ context.Context, s *model.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := *s
	f.byID[s.ID] = &cpy
	return nil
}

func (f *fakeSessions) GetByHash(_ context.Context, hash string) (*model.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.TokenHash == hash && s.RevokedAt == nil {
			c := *s
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSessions) Revoke(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok || s.RevokedAt != nil {
		return errs.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeAll = append(f.revokeAll, userID)
	for _, s := range f.byID {
		if s.UserID == userID && s.RevokedAt == nil {
			now := time.Now()
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeSessions) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.byID {
		if s.RevokedAt == nil {
			n++
		}
	}
	return n
}

type fakeActivities struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.Activity
	queries []model.ActivityQuery
}

var _ repository.ActivityRepository = (*fakeActivities)(nil)

func newFakeActivities(seed ...model.Activity) *fakeActivities {
	f := &fakeActivities{byID: map[uuid.UUID]*model.Activity{}}
	for i := range seed {
		a := seed[i]
		f.byID[a.ID] = &a
	}
	return f
}

func (f *fakeActivities) Create(_ context.Context, a *model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := *a
	f.byID[a.ID] = &cpy
	return nil
}

func (f *fakeActivities) GetByID(_ context.Context, id uuid.UUID) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeActivities) List(_ context.Context, q model.ActivityQuery) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	out := []model.Activity{}
	for _, a := range f.byID {
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.OrganizerID != nil && a.OrganizerID != *q.OrganizerID {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeActivities) Update(_ context.Context, a *model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[a.ID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *a
	f.byID[a.ID] = &cpy
	return nil
}

func (f *fakeActivities) Transition(_ context.Context, id uuid.UUID, from []model.ActivityStatus, to model.ActivityStatus, note *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			if note != nil {
				n := *note
				a.ReviewNote = &n
			}
			return nil
		}
	}
	return errs.ErrConflict
}

func (f *fakeActivities) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRegistrations struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Registration
}

var _ repository.RegistrationRepository = (*fakeRegistrations)(nil)

func newFakeRegistrations(seed ...model.Registration) *fakeRegistrations {
	f := &fakeRegistrations{byID: map[uuid.UUID]*model.Registration{}}
	for i := range seed {
		r := seed[i]
		f.byID[r.ID] = &r
	}
	return f
}

func (f *fakeRegistrations) Create(_ context.Context, r *model.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.ActivityID == r.ActivityID && x.UserID == r.UserID {
			if x.Status != model.RegistrationCancelled {
				return errs.ErrAlreadyExists
			}
			x.Status, x.Note = r.Status, r.Note
			r.ID = x.ID
			return nil
		}
	}
	cpy := *r
	f.byID[r.ID] = &cpy
	return nil
}

func (f *fakeRegistrations) GetByID(_ context.Context, id uuid.UUID) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRegistrations) GetByActivityUser(_ context.Context, activityID, userID uuid.UUID) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ActivityID == activityID && r.UserID == userID {
			c := *r
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeRegistrations) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Registration{}
	for _, r := range f.byID {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRegistrations) UpdateStatus(_ context.Context, id uuid.UUID, status model.RegistrationStatus, at *time.Time) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	r.Status = status
	if at != nil {
		t := *at
		r.CheckedInAt = &t
	}
	c := *r
	return &c, nil
}

func (f *fakeRegistrations) Recent(_ context.Context, _ *uuid.UUID, limit int) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Registration{}
	for _, r := range f.byID {
		if len(out) == limit {
			break
		}
		out = append(out, *r)
	}
	return out, nil
}

type fakeFeedbacks struct {
	mu   sync.Mutex
	list []model.Feedback
}

var _ repository.FeedbackRepository = (*fakeFeedbacks)(nil)

func (f *fakeFeedbacks) Create(_ context.Context, fb *model.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.list {
		if x.ActivityID == fb.ActivityID && x.UserID == fb.UserID {
			return errs.ErrAlreadyExists
		}
	}
	f.list = append(f.list, *fb)
	return nil
}

func (f *fakeFeedbacks) ListByActivity(_ context.Context, activityID uuid.UUID) ([]model.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Feedback{}
	for _, x := range f.list {
		if x.ActivityID == activityID {
			out = append(out, x)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*model.Notification
	createdBy []*uuid.UUID
	inbox     []model.Role
	markErr   error
}

var _ repository.NotificationRepository = (*fakeNotifications)(nil)

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{byID: map[uuid.UUID]*model.Notification{}}
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cpy := *n
	f.byID[n.ID] = &cpy
	return nil
}

func (f *fakeNotifications) GetByID(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (f *fakeNotifications) List(_ context.Context, _ model.NotificationQuery, createdBy *uuid.UUID) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdBy = append(f.createdBy, createdBy)
	return []model.Notification{}, nil
}

func (f *fakeNotifications) Update(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[n.ID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *n
	f.byID[n.ID] = &cpy
	return nil
}

func (f *fakeNotifications) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeNotifications) Due(_ context.Context, now time.Time, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for _, n := range f.byID {
		if n.Status == model.NotificationScheduled && n.ScheduledAt != nil && !n.ScheduledAt.After(now) && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	n, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if n.Status == model.NotificationSent {
		return errs.ErrConflict
	}
	n.Status, n.SentAt = model.NotificationSent, &at
	return nil
}

func (f *fakeNotifications) Inbox(_ context.Context, _ uuid.UUID, role model.Role, _ model.NotificationQuery) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, role)
	return []model.Notification{}, nil
}

type fakeDocs struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Document

	createErr error
}

var _ repository.DocumentRepository = (*fakeDocs)(nil)

func newFakeDocs() *fakeDocs { return &fakeDocs{byID: map[uuid.UUID]*model.Document{}} }

func (f *fakeDocs) Create(_ context.Context, d *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cpy := *d
	f.byID[d.ID] = &cpy
	return nil
}

func (f *fakeDocs) GetByID(_ context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (f *fakeDocs) List(context.Context, model.DocumentQuery) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Document{}
	for _, d := range f.byID {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDocs) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []model.ActivityLog
	err     error
}

var _ repository.LogRepository = (*fakeLogs)(nil)

func (f *fakeLogs) Append(_ context.Context, l *model.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *l)
	return nil
}

func (f *fakeLogs) List(context.Context, model.LogQuery) ([]model.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ActivityLog(nil), f.entries...), nil
}

func (f *fakeLogs) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type fakeSettings struct {
	features []model.AdvancedFeature
	widgets  []model.SystemWidget
}

var _ repository.SettingsRepository = (*fakeSettings)(nil)

func (f *fakeSettings) ListFeatures(context.Context) ([]model.AdvancedFeature, error) {
	return f.features, nil
}

func (f *fakeSettings) UpdateFeature(_ context.Context, key string, upd model.FeatureUpdate) (*model.AdvancedFeature, error) {
	for i := range f.features {
		if f.features[i].Key == key {
			if upd.Enabled != nil {
				f.features[i].Enabled = *upd.Enabled
			}
			if upd.Config != nil {
				f.features[i].Config = upd.Config
			}
			c := f.features[i]
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSettings) ListWidgets(context.Context) ([]model.SystemWidget, error) {
	return f.widgets, nil
}

func (f *fakeSettings) UpdateWidget(_ context.Context, key string, upd model.WidgetUpdate) (*model.SystemWidget, error) {
	for i := range f.widgets {
		if f.widgets[i].Key == key {
			if upd.Enabled != nil {
				f.widgets[i].Enabled = *upd.Enabled
			}
			c := f.widgets[i]
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

// fakeFeatures answers FeatureChecker from a map; missing keys are on.
type fakeFeatures map[string]bool

func (f fakeFeatures) Enabled(_ context.Context, key string) (bool, error) {
	on, ok := f[key]
	return on || !ok, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	subjects     []string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, subject string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.subjects = append(l.subjects, subject)
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func ptr[T any](v T) *T { return &v }

func actorOf(role model.Role) Actor {
	return Actor{ID: uuid.Must(uuid.NewV4()), Role: role}
}
