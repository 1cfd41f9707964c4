package model

import "time"

// TypeCount is one bucket of a per-type breakdown.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ReportSummary aggregates participation over an optional period.
type ReportSummary struct {
	From               *time.Time  `json:"from,omitempty"`
	To                 *time.Time  `json:"to,omitempty"`
	TotalActivities    int         `json:"totalActivities"`
	ApprovedActivities int         `json:"approvedActivities"`
	PendingActivities  int         `json:"pendingActivities"`
	TotalRegistrations int         `json:"totalRegistrations"`
	Attended           int         `json:"attended"`
	ParticipatingUsers int         `json:"participatingUsers"`
	AttendanceRate     float64     `json:"attendanceRate"`
	ByType             []TypeCount `json:"byType"`
}

// DashboardOverview is the landing-page snapshot for admins and managers.
type DashboardOverview struct {
	TotalUsers          int            `json:"totalUsers"`
	TotalStudents       int            `json:"totalStudents"`
	TotalManagers       int            `json:"totalManagers"`
	TotalActivities     int            `json:"totalActivities"`
	PendingApprovals    int            `json:"pendingApprovals"`
	TotalRegistrations  int            `json:"totalRegistrations"`
	UpcomingActivities  []Activity     `json:"upcomingActivities"`
	RecentRegistrations []Registration `json:"recentRegistrations"`
}

// AdvancedFeature is a system-wide feature toggle.
type AdvancedFeature struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Enabled     bool              `json:"enabled"`
	Config      map[string]string `json:"config,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SystemWidget is a dashboard widget toggle.
type SystemWidget struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Enabled   bool      `json:"enabled"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updatedAt"`
}
