// Package events defines the wire schema: flat JSON objects carrying a
// "type" discriminator, one Go struct per message kind.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// Client→server message types.
const (
	TypeJoinRoom    = "joinRoom"
	TypeLeaveRoom   = "leaveRoom"
	TypeChatMessage = "chatMessage"
	TypePollCreate  = "pollCreate"
	TypePollVote    = "pollVote"
	TypePollEnd     = "pollEnd"
	TypeModerate    = "moderate"
	TypeTyping      = "typing"
	TypePing        = "ping"
)

// Server→client message types. TypeChatMessage is shared by both directions.
const (
	TypeRoomJoined     = "roomJoined"
	TypeUserJoined     = "userJoined"
	TypeUserLeft       = "userLeft"
	TypeMessageBlocked = "messageBlocked"
	TypeSlowMode       = "slowMode"
	TypePollCreated    = "pollCreated"
	TypePollUpdate     = "pollUpdate"
	TypePollEnded      = "pollEnded"
	TypeUserTimeout    = "userTimeout"
	TypeUserBanned     = "userBanned"
	TypeMessageDeleted = "messageDeleted"
	TypeError          = "error"
	TypePong           = "pong"
)

// ClientMessage is the closed set of messages a client may send. Decoding an
// unknown type is an error, not a silent skip.
type ClientMessage interface {
	clientMessage()
}

// JoinRoom requests membership in a room. UserID, Username and Role are kept
// on the wire for older clients; the server resolves identity from the
// authenticated session and ignores them.
type JoinRoom struct {
	Type     string      `json:"type"`
	RoomID   string      `json:"roomId"`
	UserID   string      `json:"userId,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     models.Role `json:"role,omitempty"`
}

type LeaveRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

// ChatMessage carries one outbound chat line. Identity fields on the wire
// are ignored in favor of the session identity, same as JoinRoom.
type ChatMessage struct {
	Type     string      `json:"type"`
	RoomID   string      `json:"roomId"`
	UserID   string      `json:"userId,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     models.Role `json:"role,omitempty"`
	Message  string      `json:"message"`
}

type PollCreate struct {
	Type            string   `json:"type"`
	RoomID          string   `json:"roomId"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	DurationSeconds int      `json:"durationSeconds"`
}

type PollVote struct {
	Type        string    `json:"type"`
	PollID      uuid.UUID `json:"pollId"`
	OptionIndex int       `json:"optionIndex"`
	UserID      string    `json:"userId,omitempty"`
}

type PollEnd struct {
	Type   string    `json:"type"`
	PollID uuid.UUID `json:"pollId"`
}

type Moderate struct {
	Type            string                `json:"type"`
	Action          models.ModerationKind `json:"action"`
	RoomID          string                `json:"roomId"`
	TargetUserID    uuid.UUID             `json:"targetUserId,omitempty"`
	MessageID       int64                 `json:"messageId,omitempty"`
	DurationSeconds int                   `json:"duration,omitempty"`
}

type Typing struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type Ping struct {
	Type string `json:"type"`
}

func (JoinRoom) clientMessage()    {}
func (LeaveRoom) clientMessage()   {}
func (ChatMessage) clientMessage() {}
func (PollCreate) clientMessage()  {}
func (PollVote) clientMessage()    {}
func (PollEnd) clientMessage()     {}
func (Moderate) clientMessage()    {}
func (Typing) clientMessage()      {}
func (Ping) clientMessage()        {}

// DecodeClientMessage parses a raw frame into its concrete message type.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var head struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}

	var (
		msg ClientMessage
		err error
	)

	switch head.Type {
	case TypeJoinRoom:
		var m JoinRoom
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeLeaveRoom:
		var m LeaveRoom
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeChatMessage:
		var m ChatMessage
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypePollCreate:
		var m PollCreate
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypePollVote:
		var m PollVote
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypePollEnd:
		var m PollEnd
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeModerate:
		var m Moderate
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeTyping:
		var m Typing
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypePing:
		var m Ping
		err = json.Unmarshal(raw, &m)
		msg = m
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}

	return msg, nil
}
