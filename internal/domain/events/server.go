package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// Server→client events. Constructors set the type discriminator so handlers
// cannot ship an event with a missing or mistyped tag.

type RoomJoinedEvent struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"roomId"`
	Settings   json.RawMessage `json:"settings"`
	UserCount  int             `json:"userCount"`
	ActivePoll *models.Poll    `json:"activePoll,omitempty"`
}

func NewRoomJoinedEvent(roomID string, settings json.RawMessage, userCount int, activePoll *models.Poll) RoomJoinedEvent {
	return RoomJoinedEvent{
		Type:       TypeRoomJoined,
		RoomID:     roomID,
		Settings:   settings,
		UserCount:  userCount,
		ActivePoll: activePoll,
	}
}

type UserJoinedEvent struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	UserCount int    `json:"userCount"`
}

func NewUserJoinedEvent(username string, userCount int) UserJoinedEvent {
	return UserJoinedEvent{Type: TypeUserJoined, Username: username, UserCount: userCount}
}

type UserLeftEvent struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	UserCount int    `json:"userCount"`
}

func NewUserLeftEvent(username string, userCount int) UserLeftEvent {
	return UserLeftEvent{Type: TypeUserLeft, Username: username, UserCount: userCount}
}

type ChatMessageEvent struct {
	Type      string      `json:"type"`
	ID        int64       `json:"id"`
	RoomID    string      `json:"roomId"`
	UserID    uuid.UUID   `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Deleted   bool        `json:"deleted,omitempty"`
}

func NewChatMessageEvent(msg models.ChatMessage) ChatMessageEvent {
	body := msg.Body
	if msg.Deleted {
		body = ""
	}

	return ChatMessageEvent{
		Type:      TypeChatMessage,
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Role:      msg.Role,
		Message:   body,
		Timestamp: msg.CreatedAt,
		Deleted:   msg.Deleted,
	}
}

type MessageBlockedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func NewMessageBlockedEvent(reason string) MessageBlockedEvent {
	return MessageBlockedEvent{Type: TypeMessageBlocked, Reason: reason}
}

type SlowModeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSlowModeEvent(message string) SlowModeEvent {
	return SlowModeEvent{Type: TypeSlowMode, Message: message}
}

type PollCreatedEvent struct {
	Type string      `json:"type"`
	Poll models.Poll `json:"poll"`
}

func NewPollCreatedEvent(poll models.Poll) PollCreatedEvent {
	return PollCreatedEvent{Type: TypePollCreated, Poll: poll}
}

type PollUpdateEvent struct {
	Type            string    `json:"type"`
	PollID          uuid.UUID `json:"pollId"`
	PerOptionCounts []int     `json:"perOptionCounts"`
	TotalVotes      int       `json:"totalVotes"`
	Percentages     []float64 `json:"percentages"`
}

func NewPollUpdateEvent(tally models.Tally) PollUpdateEvent {
	return PollUpdateEvent{
		Type:            TypePollUpdate,
		PollID:          tally.PollID,
		PerOptionCounts: tally.Counts,
		TotalVotes:      tally.Total,
		Percentages:     tally.Percentages,
	}
}

type PollEndedEvent struct {
	Type            string    `json:"type"`
	PollID          uuid.UUID `json:"pollId"`
	PerOptionCounts []int     `json:"perOptionCounts"`
	TotalVotes      int       `json:"totalVotes"`
	Percentages     []float64 `json:"percentages"`
}

func NewPollEndedEvent(tally models.Tally) PollEndedEvent {
	return PollEndedEvent{
		Type:            TypePollEnded,
		PollID:          tally.PollID,
		PerOptionCounts: tally.Counts,
		TotalVotes:      tally.Total,
		Percentages:     tally.Percentages,
	}
}

type UserTimeoutEvent struct {
	Type            string    `json:"type"`
	TargetUserID    uuid.UUID `json:"targetUserId"`
	DurationSeconds int       `json:"duration"`
}

func NewUserTimeoutEvent(targetUserID uuid.UUID, durationSeconds int) UserTimeoutEvent {
	return UserTimeoutEvent{Type: TypeUserTimeout, TargetUserID: targetUserID, DurationSeconds: durationSeconds}
}

type UserBannedEvent struct {
	Type         string    `json:"type"`
	TargetUserID uuid.UUID `json:"targetUserId"`
}

func NewUserBannedEvent(targetUserID uuid.UUID) UserBannedEvent {
	return UserBannedEvent{Type: TypeUserBanned, TargetUserID: targetUserID}
}

type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"messageId"`
}

func NewMessageDeletedEvent(messageID int64) MessageDeletedEvent {
	return MessageDeletedEvent{Type: TypeMessageDeleted, MessageID: messageID}
}

type TypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func NewTypingEvent(username string, isTyping bool) TypingEvent {
	return TypingEvent{Type: TypeTyping, Username: username, IsTyping: isTyping}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message}
}

type PongEvent struct {
	Type string `json:"type"`
}

func NewPongEvent() PongEvent {
	return PongEvent{Type: TypePong}
}
