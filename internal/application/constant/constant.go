// Package constant holds shared slog attribute keys.
package constant

const (
	Error     = "error"
	UserID    = "user_id"
	ConnID    = "conn_id"
	RoomID    = "room_id"
	PollID    = "poll_id"
	MessageID = "message_id"
)
