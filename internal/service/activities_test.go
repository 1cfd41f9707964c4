package service

import (
	"context"
	"testing"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type activityFixture struct {
	t     *testing.T
	svc   *ActivityServiceImpl
	acts  *fakeActivities
	regs  *fakeRegistrations
	fbs   *fakeFeedbacks
	logs  *fakeLogs
	owner Actor
}

func newActivityFixture(t *testing.T, features FeatureChecker, seed ...model.Activity) *activityFixture {
	t.Helper()
	f := &activityFixture{
		t:     t,
		acts:  newFakeActivities(seed...),
		regs:  newFakeRegistrations(),
		fbs:   &fakeFeedbacks{},
		logs:  &fakeLogs{},
		owner: actorOf(model.RoleManager),
	}
	f.svc = NewActivityService(f.acts, f.regs, f.fbs, f.logs, features, zaptest.NewLogger(t))
	f.svc.now = func() time.Time { return baseTime }
	return f
}

func (f *activityFixture) seed(status model.ActivityStatus, mutate ...func(*model.Activity)) model.Activity {
	a := model.Activity{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       "Green campus day",
		Type:        "volunteer",
		Location:    "Hall A",
		StartAt:     baseTime.Add(24 * time.Hour),
		EndAt:       baseTime.Add(28 * time.Hour),
		Capacity:    10,
		Status:      status,
		OrganizerID: f.owner.ID,
	}
	for _, m := range mutate {
		m(&a)
	}
	require.NoError(f.t, f.acts.Create(context.Background(), &a))
	return a
}

func validInput() model.ActivityInput {
	return model.ActivityInput{
		Title:    " Blood drive ",
		Type:     "volunteer",
		Location: "Clinic",
		StartAt:  baseTime.Add(48 * time.Hour),
		EndAt:    baseTime.Add(50 * time.Hour),
		Capacity: 30,
		Points:   5,
	}
}

func TestActivityList_OnlyPublished(t *testing.T) {
	t.Parallel()

	f := newActivityFixture(t, nil)
	f.seed(model.ActivityApproved)
	f.seed(model.ActivityPending)

	got, err := f.svc.List(context.Background(), model.ActivityQuery{Status: model.ActivityPending})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, model.ActivityApproved, got[0].Status)

	_, err = f.svc.List(context.Background(), model.ActivityQuery{Status: model.ActivityCompleted})
	require.NoError(t, err)
	require.Equal(t, model.ActivityCompleted, f.acts.queries[1].Status)
}

func TestActivityGet_HidesUnpublished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	a := f.seed(model.ActivityPending)

	_, err := f.svc.Get(ctx, actorOf(model.RoleStudent), a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	got, err := f.svc.Get(ctx, f.owner, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	_, err = f.svc.Get(ctx, actorOf(model.RoleAdmin), a.ID)
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	open := f.seed(model.ActivityApproved)
	pending := f.seed(model.ActivityPending)
	ended := f.seed(model.ActivityApproved, func(a *model.Activity) {
		a.StartAt, a.EndAt = baseTime.Add(-3*time.Hour), baseTime.Add(-time.Hour)
	})
	full := f.seed(model.ActivityApproved, func(a *model.Activity) { a.Capacity, a.RegisteredCount = 2, 2 })
	student := actorOf(model.RoleStudent)

	reg, err := f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: open.ID, Note: ptr("  vegetarian ")})
	require.NoError(t, err)
	require.Equal(t, model.RegistrationRegistered, reg.Status)
	require.Equal(t, open.Title, reg.ActivityTitle)
	require.Equal(t, "vegetarian", *reg.Note)

	_, err = f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: open.ID})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	for _, id := range []uuid.UUID{pending.ID, ended.ID, full.ID} {
		_, err = f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: id})
		require.ErrorIs(t, err, errs.ErrConflict)
	}

	_, err = f.svc.Register(ctx, f.owner, model.RegistrationRequest{ActivityID: open.ID})
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Register(ctx, student, model.RegistrationRequest{})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: uuid.Must(uuid.NewV4())})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCancelRegistration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	a := f.seed(model.ActivityApproved)
	student := actorOf(model.RoleStudent)

	reg, err := f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: a.ID})
	require.NoError(t, err)

	_, err = f.svc.CancelRegistration(ctx, actorOf(model.RoleStudent), reg.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	got, err := f.svc.CancelRegistration(ctx, student, reg.ID)
	require.NoError(t, err)
	require.Equal(t, model.RegistrationCancelled, got.Status)

	got, err = f.svc.CancelRegistration(ctx, student, reg.ID)
	require.NoError(t, err)
	require.Equal(t, model.RegistrationCancelled, got.Status)

	// a cancelled seat can be taken again
	again, err := f.svc.Register(ctx, student, model.RegistrationRequest{ActivityID: a.ID})
	require.NoError(t, err)
	require.Equal(t, reg.ID, again.ID)

	_, err = f.regs.UpdateStatus(ctx, reg.ID, model.RegistrationAttended, &baseTime)
	require.NoError(t, err)
	_, err = f.svc.CancelRegistration(ctx, student, reg.ID)
	require.ErrorIs(t, err, errs.ErrConflict)

	mine, err := f.svc.MyRegistrations(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestSubmitFeedback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	upcoming := f.seed(model.ActivityApproved)
	past := f.seed(model.ActivityCompleted, func(a *model.Activity) {
		a.StartAt, a.EndAt = baseTime.Add(-5*time.Hour), baseTime.Add(-time.Hour)
	})
	student := actorOf(model.RoleStudent)

	_, err := f.svc.SubmitFeedback(ctx, student, past.ID, model.FeedbackInput{Rating: 5})
	require.ErrorIs(t, err, errs.ErrForbidden)

	for _, a := range []model.Activity{upcoming, past} {
		require.NoError(t, f.regs.Create(ctx, &model.Registration{
			ID: uuid.Must(uuid.NewV4()), ActivityID: a.ID, UserID: student.ID, Status: model.RegistrationApproved,
		}))
	}

	_, err = f.svc.SubmitFeedback(ctx, student, upcoming.ID, model.FeedbackInput{Rating: 4})
	require.ErrorIs(t, err, errs.ErrConflict)

	fb, err := f.svc.SubmitFeedback(ctx, student, past.ID, model.FeedbackInput{Rating: 4, Comment: " great "})
	require.NoError(t, err)
	require.Equal(t, "great", fb.Comment)

	_, err = f.svc.SubmitFeedback(ctx, student, past.ID, model.FeedbackInput{Rating: 3})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = f.svc.SubmitFeedback(ctx, student, past.ID, model.FeedbackInput{Rating: 6})
	require.ErrorIs(t, err, errs.ErrValidation)

	list, err := f.svc.ListFeedbacks(ctx, f.owner, past.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = f.svc.ListFeedbacks(ctx, actorOf(model.RoleManager), past.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestSubmitFeedback_Disabled(t *testing.T) {
	t.Parallel()

	f := newActivityFixture(t, fakeFeatures{FeatureFeedback: false})
	a := f.seed(model.ActivityCompleted)
	_, err := f.svc.SubmitFeedback(context.Background(), actorOf(model.RoleStudent), a.ID, model.FeedbackInput{Rating: 5})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestCreateActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)

	byManager, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)
	require.Equal(t, model.ActivityPending, byManager.Status)
	require.Equal(t, "Blood drive", byManager.Title)
	require.Equal(t, f.owner.ID, byManager.OrganizerID)

	byAdmin, err := f.svc.Create(ctx, actorOf(model.RoleAdmin), validInput())
	require.NoError(t, err)
	require.Equal(t, model.ActivityApproved, byAdmin.Status)

	_, err = f.svc.Create(ctx, actorOf(model.RoleStudent), validInput())
	require.ErrorIs(t, err, errs.ErrForbidden)

	bad := validInput()
	bad.EndAt = bad.StartAt
	_, err = f.svc.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, errs.ErrValidation)

	require.Equal(t, []string{"activity.create", "activity.create"}, f.logs.actions())
}

func TestUpdateActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	a := f.seed(model.ActivityApproved, func(a *model.Activity) { a.RegisteredCount = 5 })
	closed := f.seed(model.ActivityCancelled)

	got, err := f.svc.Update(ctx, f.owner, a.ID, validInput())
	require.NoError(t, err)
	require.Equal(t, model.ActivityPending, got.Status)
	require.Equal(t, 30, got.Capacity)

	in := validInput()
	in.Capacity = 3
	_, err = f.svc.Update(ctx, actorOf(model.RoleAdmin), a.ID, in)
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "capacity")

	_, err = f.svc.Update(ctx, actorOf(model.RoleManager), a.ID, validInput())
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Update(ctx, f.owner, closed.ID, validInput())
	require.ErrorIs(t, err, errs.ErrConflict)

	require.NoError(t, f.svc.Delete(ctx, f.owner, a.ID))
	_, err = f.acts.GetByID(ctx, a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestModeration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	admin := actorOf(model.RoleAdmin)
	a := f.seed(model.ActivityPending)

	_, err := f.svc.Approve(ctx, f.owner, a.ID, model.ReviewRequest{})
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Reject(ctx, admin, a.ID, model.ReviewRequest{Note: "  "})
	require.ErrorIs(t, err, errs.ErrValidation)

	got, err := f.svc.RequestEdit(ctx, admin, a.ID, model.ReviewRequest{Note: "add a room number"})
	require.NoError(t, err)
	require.Equal(t, model.ActivityEditRequested, got.Status)
	require.Equal(t, "add a room number", *got.ReviewNote)

	got, err = f.svc.Approve(ctx, admin, a.ID, model.ReviewRequest{})
	require.NoError(t, err)
	require.Equal(t, model.ActivityApproved, got.Status)

	_, err = f.svc.Approve(ctx, admin, a.ID, model.ReviewRequest{})
	require.ErrorIs(t, err, errs.ErrConflict)

	got, err = f.svc.Reject(ctx, admin, a.ID, model.ReviewRequest{Note: "venue unavailable"})
	require.NoError(t, err)
	require.Equal(t, model.ActivityRejected, got.Status)

	_, err = f.svc.RequestEdit(ctx, admin, a.ID, model.ReviewRequest{Note: "again"})
	require.ErrorIs(t, err, errs.ErrConflict)

	require.Equal(t, []string{"activity.request_edit", "activity.approve", "activity.reject"}, f.logs.actions())
}

func TestUpdateRegistrationStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	a := f.seed(model.ActivityApproved)
	reg := &model.Registration{
		ID: uuid.Must(uuid.NewV4()), ActivityID: a.ID, UserID: uuid.Must(uuid.NewV4()), Status: model.RegistrationRegistered,
	}
	require.NoError(t, f.regs.Create(ctx, reg))

	_, err := f.svc.UpdateRegistrationStatus(ctx, actorOf(model.RoleManager), reg.ID,
		model.RegistrationStatusUpdate{Status: model.RegistrationApproved})
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := f.svc.UpdateRegistrationStatus(ctx, f.owner, reg.ID,
		model.RegistrationStatusUpdate{Status: model.RegistrationAttended})
	require.NoError(t, err)
	require.Equal(t, model.RegistrationAttended, got.Status)
	require.Equal(t, baseTime, *got.CheckedInAt)

	_, err = f.svc.UpdateRegistrationStatus(ctx, f.owner, reg.ID, model.RegistrationStatusUpdate{Status: "lost"})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestListManaged_Scoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newActivityFixture(t, nil)
	f.seed(model.ActivityPending)
	f.seed(model.ActivityApproved, func(a *model.Activity) { a.OrganizerID = uuid.Must(uuid.NewV4()) })

	mine, err := f.svc.ListManaged(ctx, f.owner, model.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := f.svc.ListManaged(ctx, actorOf(model.RoleAdmin), model.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = f.svc.ListManaged(ctx, actorOf(model.RoleStudent), model.ActivityQuery{})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAuditFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newActivityFixture(t, nil)
	f.logs.err = errs.ErrConflict
	_, err := f.svc.Create(context.Background(), actorOf(model.RoleAdmin), validInput())
	require.NoError(t, err)
}
