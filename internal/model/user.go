package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// UserStatus tracks whether an account may sign in.
type UserStatus string

const (
	UserActive UserStatus = "active"
	UserLocked UserStatus = "locked"
)

// User is an account as seen by administrators. PwdHash never leaves the server.
type User struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	StudentID   *string    `json:"studentId,omitempty"`
	Faculty     *string    `json:"faculty,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	PwdHash string `json:"-"`
}

// Profile projects the account onto the session profile.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
		StudentID:   u.StudentID,
		Faculty:     u.Faculty,
	}
}

// UserProfile is the record cached by a client session for the signed-in user.
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	StudentID   *string `json:"studentId,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
}

// Student is a roster row: a student account with participation counters.
type Student struct {
	ID                uuid.UUID           `json:"id"`
	DisplayName       string              `json:"displayName"`
	Email             string              `json:"email"`
	StudentID         *string             `json:"studentId,omitempty"`
	Faculty           *string             `json:"faculty,omitempty"`
	Registrations     int                 `json:"registrations"`
	Attended          int                 `json:"attended"`
	LastRegisteredAt  *time.Time          `json:"lastRegisteredAt,omitempty"`
	RegistrationState *RegistrationStatus `json:"registrationStatus,omitempty"`
	RegistrationID    *uuid.UUID          `json:"registrationId,omitempty"`
}
