package models

import (
	"encoding/json"
	"time"
)

// Room is a broadcast scope, e.g. one live match's chat. Settings come from
// the durable store; membership lives only in memory.
type Room struct {
	RoomID          string          `json:"room_id" db:"room_id"`
	SlowModeSeconds int             `json:"slow_mode_seconds" db:"slow_mode_seconds"`
	Settings        json.RawMessage `json:"settings" db:"settings"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
