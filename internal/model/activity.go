package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// ActivityStatus is the moderation state of an activity.
type ActivityStatus string

const (
	ActivityPending       ActivityStatus = "pending"
	ActivityApproved      ActivityStatus = "approved"
	ActivityRejected      ActivityStatus = "rejected"
	ActivityEditRequested ActivityStatus = "edit_requested"
	ActivityCancelled     ActivityStatus = "cancelled"
	ActivityCompleted     ActivityStatus = "completed"
)

// Valid reports whether s is a known status.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPending, ActivityApproved, ActivityRejected, ActivityEditRequested, ActivityCancelled, ActivityCompleted:
		return true
	}
	return false
}

// Activity is a university event students can register for.
type Activity struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Type            string         `json:"type"`
	Location        string         `json:"location"`
	StartAt         time.Time      `json:"startAt"`
	EndAt           time.Time      `json:"endAt"`
	Capacity        int            `json:"capacity"`
	Points          int            `json:"points"`
	RegisteredCount int            `json:"registeredCount"`
	Status          ActivityStatus `json:"status"`
	OrganizerID     uuid.UUID      `json:"organizerId"`
	OrganizerName   string         `json:"organizerName,omitempty"`
	ReviewNote      *string        `json:"reviewNote,omitempty"`
	CoverURL        *string        `json:"coverUrl,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Full reports whether the activity has no seats left. Capacity 0 means unlimited.
func (a Activity) Full() bool {
	return a.Capacity > 0 && a.RegisteredCount >= a.Capacity
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationApproved   RegistrationStatus = "approved"
	RegistrationRejected   RegistrationStatus = "rejected"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationRegistered, RegistrationApproved, RegistrationRejected, RegistrationCancelled, RegistrationAttended:
		return true
	}
	return false
}

// Active reports whether the registration holds a seat.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationRegistered || s == RegistrationApproved || s == RegistrationAttended
}

// Registration links a student to an activity.
type Registration struct {
	ID            uuid.UUID          `json:"id"`
	ActivityID    uuid.UUID          `json:"activityId"`
	ActivityTitle string             `json:"activityTitle,omitempty"`
	UserID        uuid.UUID          `json:"userId"`
	Status        RegistrationStatus `json:"status"`
	Note          *string            `json:"note,omitempty"`
	CheckedInAt   *time.Time         `json:"checkedInAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Feedback is a post-activity rating left by a participant.
type Feedback struct {
	ID         uuid.UUID `json:"id"`
	ActivityID uuid.UUID `json:"activityId"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

// QRCode is a short-lived check-in code issued for one activity.
type QRCode struct {
	ActivityID uuid.UUID `json:"activityId"`
	Code       string    `json:"code"`
	CheckInURL string    `json:"checkInUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
