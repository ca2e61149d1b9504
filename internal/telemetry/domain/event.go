// Package domain contains the account event published to the event bus.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types written by the account service.
const (
	TypeUserRegistered         = "user.registered"
	TypeUserSSORegistered      = "user.sso_registered"
	TypeUserLoggedIn           = "user.logged_in"
	TypeUserStatusChanged      = "user.status_changed"
	TypeUserUpdated            = "user.updated"
	TypePasswordResetRequested = "user.password_reset_requested"
	TypePasswordReset          = "user.password_reset"
)

// Event is one account audit event. It is serialized as JSON onto the account events topic.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"eventType"`
	UserID    string            `json:"userId,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Source    string            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewEvent returns an event of eventType with a fresh id and the current UTC time.
func NewEvent(eventType, userID, actor string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
}
