package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Audience selects who receives a notification.
type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceStudents Audience = "students"
	AudienceManagers Audience = "managers"
	AudienceActivity Audience = "activity"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceStudents, AudienceManagers, AudienceActivity:
		return true
	}
	return false
}

// NotificationStatus is the delivery state of a notification.
type NotificationStatus string

const (
	NotificationDraft     NotificationStatus = "draft"
	NotificationScheduled NotificationStatus = "scheduled"
	NotificationSent      NotificationStatus = "sent"
)

// Notification is an announcement sent by an admin or a manager.
type Notification struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Audience    Audience           `json:"audience"`
	ActivityID  *uuid.UUID         `json:"activityId,omitempty"`
	Status      NotificationStatus `json:"status"`
	ScheduledAt *time.Time         `json:"scheduledAt,omitempty"`
	SentAt      *time.Time         `json:"sentAt,omitempty"`
	CreatedBy   uuid.UUID          `json:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Document is a file published by administrators (regulations, forms, minutes).
type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	FileName    string    `json:"fileName"`
	FileURL     string    `json:"fileUrl"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL         string  `json:"url"`
	FileName    string  `json:"fileName"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Title       *string `json:"title,omitempty"`
}

// Blob is a binary export (spreadsheet or report) returned by export endpoints.
type Blob struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ActivityLog is an audit entry recorded for every administrative mutation.
type ActivityLog struct {
	ID         uuid.UUID `json:"id"`
	ActorID    uuid.UUID `json:"actorId"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
