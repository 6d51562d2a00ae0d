package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one persisted chat message. ID and CreatedAt are assigned
// by the message store, never by the client. Deleted/DeletedBy are the only
// mutable fields (soft delete).
type ChatMessage struct {
	ID        int64      `json:"id" db:"id"`
	RoomID    string     `json:"room_id" db:"room_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Username  string     `json:"username" db:"username"`
	Role      Role       `json:"role" db:"role"`
	Body      string     `json:"body" db:"body"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Deleted   bool       `json:"deleted" db:"deleted"`
	DeletedBy *uuid.UUID `json:"deleted_by,omitempty" db:"deleted_by"`
}
