package models

import (
	"time"

	"github.com/google/uuid"
)

type ModerationKind string

const (
	ModerationDeleteMessage ModerationKind = "deleteMessage"
	ModerationTimeoutUser   ModerationKind = "timeoutUser"
	ModerationBanUser       ModerationKind = "banUser"
)

// ModerationAction is a transient moderation command. It is not persisted as
// first-class state; only its effects are (soft delete, restriction).
type ModerationAction struct {
	Kind            ModerationKind
	TargetUserID    uuid.UUID
	TargetMessageID int64
	RoomID          string
	DurationSeconds int
}

// Restriction keeps a user from posting in a room. A ban has no expiry and
// stays until explicitly lifted.
type Restriction struct {
	RoomID    string
	UserID    uuid.UUID
	Banned    bool
	ExpiresAt time.Time
}

// Active reports whether the restriction still applies at the given instant.
func (r Restriction) Active(now time.Time) bool {
	if r.Banned {
		return true
	}

	return now.Before(r.ExpiresAt)
}
