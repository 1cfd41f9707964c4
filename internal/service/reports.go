package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
)

const overviewListSize = 5

// ReportService computes participation reports and dashboard snapshots.
type ReportService interface {
	Summary(ctx context.Context, actor Actor, q model.ReportQuery) (*model.ReportSummary, error)
	Export(ctx context.Context, actor Actor, q model.ReportQuery) (*model.Blob, error)
	// Overview honours the dashboard widget toggles: lists of disabled widgets stay empty.
	Overview(ctx context.Context, actor Actor) (*model.DashboardOverview, error)
}

type ReportServiceImpl struct {
	reports       repository.ReportRepository
	activities    repository.ActivityRepository
	registrations repository.RegistrationRepository
	widgets       repository.SettingsRepository
	now           func() time.Time
}

// NewReportService constructs ReportService. widgets may be nil.
func NewReportService(
	reports repository.ReportRepository,
	activities repository.ActivityRepository,
	registrations repository.RegistrationRepository,
	widgets repository.SettingsRepository,
) *ReportServiceImpl {
	return &ReportServiceImpl{
		reports:       reports,
		activities:    activities,
		registrations: registrations,
		widgets:       widgets,
		now:           time.Now,
	}
}

func (s *ReportServiceImpl) Summary(ctx context.Context, actor Actor, q model.ReportQuery) (*model.ReportSummary, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	return s.reports.Summary(ctx, q, actor.scope())
}

// Export renders the summary as a two-column CSV followed by the per-type breakdown.
func (s *ReportServiceImpl) Export(ctx context.Context, actor Actor, q model.ReportQuery) (*model.Blob, error) {
	sum, err := s.Summary(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		{"metric", "value"},
		{"from", formatTime(sum.From)},
		{"to", formatTime(sum.To)},
		{"total_activities", strconv.Itoa(sum.TotalActivities)},
		{"approved_activities", strconv.Itoa(sum.ApprovedActivities)},
		{"pending_activities", strconv.Itoa(sum.PendingActivities)},
		{"total_registrations", strconv.Itoa(sum.TotalRegistrations)},
		{"attended", strconv.Itoa(sum.Attended)},
		{"participating_users", strconv.Itoa(sum.ParticipatingUsers)},
		{"attendance_rate", strconv.FormatFloat(sum.AttendanceRate, 'f', 4, 64)},
	}
	for _, tc := range sum.ByType {
		rows = append(rows, []string{"type:" + tc.Type, strconv.Itoa(tc.Count)})
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return &model.Blob{
		FileName:    "report-" + s.now().UTC().Format("20060102") + ".csv",
		ContentType: csvContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *ReportServiceImpl) Overview(ctx context.Context, actor Actor) (*model.DashboardOverview, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	enabled, err := s.enabledWidgets(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.reports.Overview(ctx, actor.scope())
	if err != nil {
		return nil, err
	}
	out.UpcomingActivities = []model.Activity{}
	out.RecentRegistrations = []model.Registration{}

	if enabled("upcoming") {
		now := s.now()
		out.UpcomingActivities, err = s.activities.List(ctx, model.ActivityQuery{
			Status:      model.ActivityApproved,
			From:        &now,
			OrganizerID: actor.scope(),
			Paging:      model.Paging{Limit: overviewListSize},
		})
		if err != nil {
			return nil, err
		}
	}
	if enabled("recent_registrations") {
		out.RecentRegistrations, err = s.registrations.Recent(ctx, actor.scope(), overviewListSize)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *ReportServiceImpl) enabledWidgets(ctx context.Context) (func(string) bool, error) {
	if s.widgets == nil {
		return func(string) bool { return true }, nil
	}
	ws, err := s.widgets.ListWidgets(ctx)
	if err != nil {
		return nil, err
	}
	off := map[string]bool{}
	for _, w := range ws {
		if !w.Enabled {
			off[w.Key] = true
		}
	}
	return func(key string) bool { return !off[key] }, nil
}
