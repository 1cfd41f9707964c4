package postgres

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ReportRepo implements ReportRepository using PostgreSQL.
type ReportRepo struct{ db *DB }

// NewReportRepo constructs a report repository.
func NewReportRepo(db *DB) *ReportRepo { return &ReportRepo{db: db} }

func reportFilter(q model.ReportQuery, organizerID *uuid.UUID) *filter {
	f := &filter{}
	if q.From != nil {
		f.add("a.start_at>=?", *q.From)
	}
	if q.To != nil {
		f.add("a.start_at<=?", *q.To)
	}
	if q.Type != "" {
		f.add("a.type=?", q.Type)
	}
	if organizerID != nil {
		f.add("a.organizer_id=?", *organizerID)
	}
	return f
}

// Summary aggregates activities that start inside the requested period.
func (r *ReportRepo) Summary(ctx context.Context, q model.ReportQuery, organizerID *uuid.UUID) (*model.ReportSummary, error) {
	out := &model.ReportSummary{From: q.From, To: q.To, ByType: []model.TypeCount{}}

	f := reportFilter(q, organizerID)
	err := r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*),
  COUNT(*) FILTER (WHERE a.status='approved' OR a.status='completed'),
  COUNT(*) FILTER (WHERE a.status='pending')
FROM activities a`+f.where(), f.args...).
		Scan(&out.TotalActivities, &out.ApprovedActivities, &out.PendingActivities)
	if err != nil {
		return nil, err
	}

	f = reportFilter(q, organizerID)
	f.raw("r.status IN " + seatHolding)
	err = r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*),
  COUNT(*) FILTER (WHERE r.status='attended'),
  COUNT(DISTINCT r.user_id)
FROM registrations r
JOIN activities a ON a.id=r.activity_id`+f.where(), f.args...).
		Scan(&out.TotalRegistrations, &out.Attended, &out.ParticipatingUsers)
	if err != nil {
		return nil, err
	}
	if out.TotalRegistrations > 0 {
		out.AttendanceRate = float64(out.Attended) / float64(out.TotalRegistrations)
	}

	f = reportFilter(q, organizerID)
	rows, err := r.db.Pool.Query(ctx, `SELECT a.type, COUNT(*) FROM activities a`+f.where()+
		` GROUP BY a.type ORDER BY COUNT(*) DESC, a.type`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc model.TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		out.ByType = append(out.ByType, tc)
	}
	return out, rows.Err()
}

// Overview fills dashboard counters; organizerID narrows activity figures.
func (r *ReportRepo) Overview(ctx context.Context, organizerID *uuid.UUID) (*model.DashboardOverview, error) {
	out := &model.DashboardOverview{}
	err := r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*),
  COUNT(*) FILTER (WHERE role='student'),
  COUNT(*) FILTER (WHERE role='manager')
FROM users`).Scan(&out.TotalUsers, &out.TotalStudents, &out.TotalManagers)
	if err != nil {
		return nil, err
	}

	f := reportFilter(model.ReportQuery{}, organizerID)
	err = r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE a.status='pending')
FROM activities a`+f.where(), f.args...).Scan(&out.TotalActivities, &out.PendingApprovals)
	if err != nil {
		return nil, err
	}

	f = reportFilter(model.ReportQuery{}, organizerID)
	f.raw("r.status IN " + seatHolding)
	err = r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM registrations r
JOIN activities a ON a.id=r.activity_id`+f.where(), f.args...).Scan(&out.TotalRegistrations)
	if err != nil {
		return nil, err
	}
	return out, nil
}
