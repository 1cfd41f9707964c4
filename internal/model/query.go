package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/gofrs/uuid/v5"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Paging selects a page of a listing. Zero values mean "server default".
type Paging struct {
	Page  int
	Limit int
}

// Offset returns the row offset and the effective limit.
func (p Paging) Offset() (offset, limit int) {
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit
}

// ActivityQuery filters activity listings.
type ActivityQuery struct {
	Search      string
	Status      ActivityStatus
	Type        string
	From        *time.Time
	To          *time.Time
	OrganizerID *uuid.UUID
	Paging
}

// Values encodes the set fields. A nil query encodes to nil.
func (q *ActivityQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("search", q.Search)
	v.str("status", string(q.Status))
	v.str("type", q.Type)
	v.time("from", q.From)
	v.time("to", q.To)
	if q.OrganizerID != nil {
		v.str("organizerId", q.OrganizerID.String())
	}
	v.paging(q.Paging)
	return v.out()
}

// ParseActivityQuery decodes and validates query parameters.
func ParseActivityQuery(in url.Values) (ActivityQuery, error) {
	p := queryParser{in: in}
	q := ActivityQuery{
		Search: p.str("search"),
		Status: ActivityStatus(p.str("status")),
		Type:   p.str("type"),
		From:   p.time("from"),
		To:     p.time("to"),
		Paging: p.paging(),
	}
	if q.Status != "" && !q.Status.Valid() {
		p.errs.Add("status", "unknown activity status")
	}
	if raw := p.str("organizerId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			p.errs.Add("organizerId", "invalid id")
		} else {
			q.OrganizerID = &id
		}
	}
	return q, p.errs.Err()
}

// UserQuery filters account listings.
type UserQuery struct {
	Search string
	Role   Role
	Status UserStatus
	Paging
}

func (q *UserQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("search", q.Search)
	v.str("role", string(q.Role))
	v.str("status", string(q.Status))
	v.paging(q.Paging)
	return v.out()
}

func ParseUserQuery(in url.Values) (UserQuery, error) {
	p := queryParser{in: in}
	q := UserQuery{
		Search: p.str("search"),
		Status: UserStatus(p.str("status")),
		Paging: p.paging(),
	}
	if raw := p.str("role"); raw != "" {
		q.Role = ParseRole(raw)
		if !q.Role.Valid() {
			p.errs.Add("role", "unknown role")
		}
	}
	return q, p.errs.Err()
}

// StudentQuery filters the student roster, optionally to one activity.
type StudentQuery struct {
	Search     string
	Faculty    string
	ActivityID *uuid.UUID
	Paging
}

func (q *StudentQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("search", q.Search)
	v.str("faculty", q.Faculty)
	if q.ActivityID != nil {
		v.str("activityId", q.ActivityID.String())
	}
	v.paging(q.Paging)
	return v.out()
}

func ParseStudentQuery(in url.Values) (StudentQuery, error) {
	p := queryParser{in: in}
	q := StudentQuery{
		Search:  p.str("search"),
		Faculty: p.str("faculty"),
		Paging:  p.paging(),
	}
	if raw := p.str("activityId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			p.errs.Add("activityId", "invalid id")
		} else {
			q.ActivityID = &id
		}
	}
	return q, p.errs.Err()
}

// NotificationQuery filters notification listings.
type NotificationQuery struct {
	Search   string
	Status   NotificationStatus
	Audience Audience
	Paging
}

func (q *NotificationQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("search", q.Search)
	v.str("status", string(q.Status))
	v.str("audience", string(q.Audience))
	v.paging(q.Paging)
	return v.out()
}

func ParseNotificationQuery(in url.Values) (NotificationQuery, error) {
	p := queryParser{in: in}
	q := NotificationQuery{
		Search:   p.str("search"),
		Status:   NotificationStatus(p.str("status")),
		Audience: Audience(p.str("audience")),
		Paging:   p.paging(),
	}
	if q.Audience != "" && !q.Audience.Valid() {
		p.errs.Add("audience", "unknown audience")
	}
	return q, p.errs.Err()
}

// DocumentQuery filters document listings.
type DocumentQuery struct {
	Search string
	Paging
}

func (q *DocumentQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("search", q.Search)
	v.paging(q.Paging)
	return v.out()
}

func ParseDocumentQuery(in url.Values) (DocumentQuery, error) {
	p := queryParser{in: in}
	q := DocumentQuery{Search: p.str("search"), Paging: p.paging()}
	return q, p.errs.Err()
}

// ReportQuery bounds reports and exports to a period and an activity type.
type ReportQuery struct {
	From *time.Time
	To   *time.Time
	Type string
}

func (q *ReportQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.time("from", q.From)
	v.time("to", q.To)
	v.str("type", q.Type)
	return v.out()
}

func ParseReportQuery(in url.Values) (ReportQuery, error) {
	p := queryParser{in: in}
	q := ReportQuery{From: p.time("from"), To: p.time("to"), Type: p.str("type")}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		p.errs.Add("to", "must not be before from")
	}
	return q, p.errs.Err()
}

// LogQuery filters the audit log.
type LogQuery struct {
	Action  string
	ActorID *uuid.UUID
	Paging
}

func (q *LogQuery) Values() url.Values {
	if q == nil {
		return nil
	}
	v := queryValues{}
	v.str("action", q.Action)
	if q.ActorID != nil {
		v.str("actorId", q.ActorID.String())
	}
	v.paging(q.Paging)
	return v.out()
}

func ParseLogQuery(in url.Values) (LogQuery, error) {
	p := queryParser{in: in}
	q := LogQuery{Action: p.str("action"), Paging: p.paging()}
	if raw := p.str("actorId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			p.errs.Add("actorId", "invalid id")
		} else {
			q.ActorID = &id
		}
	}
	return q, p.errs.Err()
}

type queryValues url.Values

func (v queryValues) str(key, val string) {
	if val != "" {
		url.Values(v).Set(key, val)
	}
}

func (v queryValues) time(key string, t *time.Time) {
	if t != nil {
		url.Values(v).Set(key, t.UTC().Format(time.RFC3339))
	}
}

func (v queryValues) paging(p Paging) {
	if p.Page > 0 {
		url.Values(v).Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		url.Values(v).Set("limit", strconv.Itoa(p.Limit))
	}
}

func (v queryValues) out() url.Values {
	if len(v) == 0 {
		return nil
	}
	return url.Values(v)
}

type queryParser struct {
	in   url.Values
	errs errs.ValidationError
}

func (p *queryParser) str(key string) string {
	return strings.TrimSpace(p.in.Get(key))
}

func (p *queryParser) time(key string) *time.Time {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if d, derr := time.Parse(time.DateOnly, raw); derr == nil {
			return &d
		}
		p.errs.Add(key, "expected RFC 3339 timestamp or YYYY-MM-DD")
		return nil
	}
	return &t
}

func (p *queryParser) paging() Paging {
	return Paging{Page: p.int("page"), Limit: p.int("limit")}
}

func (p *queryParser) int(key string) int {
	raw := p.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.errs.Add(key, "expected a non-negative integer")
		return 0
	}
	return n
}
