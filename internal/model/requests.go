package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/gofrs/uuid/v5"
)

const (
	minPasswordLen = 8
	maxTitleLen    = 200
)

// SignUpRequest creates a student account.
type SignUpRequest struct {
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	StudentID   *string `json:"studentId,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
}

func (r SignUpRequest) Validate() error {
	v := &errs.ValidationError{}
	requireText(v, "displayName", r.DisplayName)
	checkEmail(v, r.Email)
	checkPassword(v, r.Password)
	return v.Err()
}

// SignInRequest authenticates with email and password.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() error {
	v := &errs.ValidationError{}
	checkEmail(v, r.Email)
	if r.Password == "" {
		v.Add("password", "required")
	}
	return v.Err()
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return errs.Invalid("refreshToken", "required")
	}
	return nil
}

// CreateUserRequest is used by administrators to provision any account.
type CreateUserRequest struct {
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        Role    `json:"role"`
	StudentID   *string `json:"studentId,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

func (r CreateUserRequest) Validate() error {
	v := &errs.ValidationError{}
	requireText(v, "displayName", r.DisplayName)
	checkEmail(v, r.Email)
	checkPassword(v, r.Password)
	if !r.Role.Valid() {
		v.Add("role", "must be student, manager or admin")
	}
	return v.Err()
}

// UpdateUserRequest patches an account; nil fields are left unchanged.
type UpdateUserRequest struct {
	DisplayName *string     `json:"displayName,omitempty"`
	Email       *string     `json:"email,omitempty"`
	Password    *string     `json:"password,omitempty"`
	Role        *Role       `json:"role,omitempty"`
	Status      *UserStatus `json:"status,omitempty"`
	StudentID   *string     `json:"studentId,omitempty"`
	Faculty     *string     `json:"faculty,omitempty"`
	Phone       *string     `json:"phone,omitempty"`
}

func (r UpdateUserRequest) Validate() error {
	v := &errs.ValidationError{}
	if r.DisplayName != nil {
		requireText(v, "displayName", *r.DisplayName)
	}
	if r.Email != nil {
		checkEmail(v, *r.Email)
	}
	if r.Password != nil {
		checkPassword(v, *r.Password)
	}
	if r.Role != nil && !r.Role.Valid() {
		v.Add("role", "must be student, manager or admin")
	}
	if r.Status != nil && *r.Status != UserActive && *r.Status != UserLocked {
		v.Add("status", "must be active or locked")
	}
	return v.Err()
}

// ActivityInput is the full editable content of an activity (create and replace).
type ActivityInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Capacity    int       `json:"capacity"`
	Points      int       `json:"points"`
	CoverURL    *string   `json:"coverUrl,omitempty"`
}

func (r ActivityInput) Validate() error {
	v := &errs.ValidationError{}
	requireText(v, "title", r.Title)
	if len(r.Title) > maxTitleLen {
		v.Add("title", "too long")
	}
	requireText(v, "type", r.Type)
	requireText(v, "location", r.Location)
	if r.StartAt.IsZero() {
		v.Add("startAt", "required")
	}
	if r.EndAt.IsZero() {
		v.Add("endAt", "required")
	}
	if !r.StartAt.IsZero() && !r.EndAt.IsZero() && !r.EndAt.After(r.StartAt) {
		v.Add("endAt", "must be after startAt")
	}
	if r.Capacity < 0 {
		v.Add("capacity", "must not be negative")
	}
	if r.Points < 0 {
		v.Add("points", "must not be negative")
	}
	return v.Err()
}

// ReviewRequest carries the moderator's note. Reject and request-edit require it.
type ReviewRequest struct {
	Note string `json:"note"`
}

// ValidateRequired checks that a note is present.
func (r ReviewRequest) ValidateRequired() error {
	if strings.TrimSpace(r.Note) == "" {
		return errs.Invalid("note", "required")
	}
	return nil
}

// RegistrationRequest registers the caller for an activity.
type RegistrationRequest struct {
	ActivityID uuid.UUID `json:"activityId"`
	Note       *string   `json:"note,omitempty"`
}

func (r RegistrationRequest) Validate() error {
	if r.ActivityID == uuid.Nil {
		return errs.Invalid("activityId", "required")
	}
	return nil
}

// RegistrationStatusUpdate is sent by managers to approve/reject/mark attendance.
type RegistrationStatusUpdate struct {
	Status RegistrationStatus `json:"status"`
}

func (r RegistrationStatusUpdate) Validate() error {
	if !r.Status.Valid() {
		return errs.Invalid("status", "unknown registration status")
	}
	return nil
}

// CheckInRequest redeems a QR check-in code.
type CheckInRequest struct {
	Code string `json:"code"`
}

func (r CheckInRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return errs.Invalid("code", "required")
	}
	return nil
}

// FeedbackInput rates a finished activity from 1 to 5.
type FeedbackInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r FeedbackInput) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return errs.Invalid("rating", "must be between 1 and 5")
	}
	return nil
}

// NotificationInput is the editable content of a notification.
type NotificationInput struct {
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Audience   Audience   `json:"audience"`
	ActivityID *uuid.UUID `json:"activityId,omitempty"`
}

func (r NotificationInput) Validate() error {
	v := &errs.ValidationError{}
	requireText(v, "title", r.Title)
	requireText(v, "body", r.Body)
	if !r.Audience.Valid() {
		v.Add("audience", "must be all, students, managers or activity")
	}
	if r.Audience == AudienceActivity && (r.ActivityID == nil || *r.ActivityID == uuid.Nil) {
		v.Add("activityId", "required for activity audience")
	}
	return v.Err()
}

// ScheduleRequest sets the delivery time of a notification.
type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (r ScheduleRequest) Validate() error {
	if r.ScheduledAt.IsZero() {
		return errs.Invalid("scheduledAt", "required")
	}
	return nil
}

// FeatureUpdate toggles or reconfigures an advanced feature.
type FeatureUpdate struct {
	Enabled *bool             `json:"enabled,omitempty"`
	Config  map[string]string `json:"config,omitempty"`
}

func (r FeatureUpdate) Validate() error {
	if r.Enabled == nil && r.Config == nil {
		return errs.Invalid("enabled", "nothing to update")
	}
	return nil
}

// WidgetUpdate toggles, renames or moves a dashboard widget.
type WidgetUpdate struct {
	Enabled  *bool   `json:"enabled,omitempty"`
	Title    *string `json:"title,omitempty"`
	Position *int    `json:"position,omitempty"`
}

func (r WidgetUpdate) Validate() error {
	v := &errs.ValidationError{}
	if r.Enabled == nil && r.Title == nil && r.Position == nil {
		v.Add("enabled", "nothing to update")
	}
	if r.Title != nil {
		requireText(v, "title", *r.Title)
	}
	if r.Position != nil && *r.Position < 0 {
		v.Add("position", "must not be negative")
	}
	return v.Err()
}

func requireText(v *errs.ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func checkEmail(v *errs.ValidationError, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add("email", "required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "invalid address")
	}
}

func checkPassword(v *errs.ValidationError, pw string) {
	if len(pw) < minPasswordLen {
		v.Add("password", "must be at least 8 characters")
	}
}
