package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

func TestDecodeClientMessage(t *testing.T) {
	t.Run("joinRoom", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"joinRoom","roomId":"match-42"}`))
		require.NoError(t, err)

		join, ok := msg.(JoinRoom)
		require.True(t, ok)
		assert.Equal(t, "match-42", join.RoomID)
	})

	t.Run("chatMessage", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"chatMessage","roomId":"match-42","message":"gl hf"}`))
		require.NoError(t, err)

		chat, ok := msg.(ChatMessage)
		require.True(t, ok)
		assert.Equal(t, "gl hf", chat.Message)
	})

	t.Run("pollVote", func(t *testing.T) {
		pollID := uuid.New()

		raw, err := json.Marshal(PollVote{Type: TypePollVote, PollID: pollID, OptionIndex: 1})
		require.NoError(t, err)

		msg, err := DecodeClientMessage(raw)
		require.NoError(t, err)

		vote, ok := msg.(PollVote)
		require.True(t, ok)
		assert.Equal(t, pollID, vote.PollID)
		assert.Equal(t, 1, vote.OptionIndex)
	})

	t.Run("moderate", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"moderate","action":"deleteMessage","roomId":"match-42","messageId":7}`))
		require.NoError(t, err)

		mod, ok := msg.(Moderate)
		require.True(t, ok)
		assert.Equal(t, models.ModerationDeleteMessage, mod.Action)
		assert.Equal(t, int64(7), mod.MessageID)
	})

	t.Run("unknown type is an error", func(t *testing.T) {
		_, err := DecodeClientMessage([]byte(`{"type":"teleport","roomId":"match-42"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown message type")
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := DecodeClientMessage([]byte(`not json`))
		require.Error(t, err)
	})
}

func TestServerEventTags(t *testing.T) {
	msg := models.ChatMessage{ID: 3, RoomID: "match-42", Username: "ana", Role: models.RoleUser, Body: "hi"}

	assert.Equal(t, TypeChatMessage, NewChatMessageEvent(msg).Type)
	assert.Equal(t, TypeRoomJoined, NewRoomJoinedEvent("match-42", nil, 1, nil).Type)
	assert.Equal(t, TypeUserJoined, NewUserJoinedEvent("ana", 2).Type)
	assert.Equal(t, TypeMessageBlocked, NewMessageBlockedEvent("blockedContent").Type)
	assert.Equal(t, TypeSlowMode, NewSlowModeEvent("wait").Type)
	assert.Equal(t, TypeMessageDeleted, NewMessageDeletedEvent(3).Type)
	assert.Equal(t, TypeError, NewErrorEvent("boom").Type)
}

func TestDeletedMessageBodyIsBlanked(t *testing.T) {
	deletedBy := uuid.New()
	msg := models.ChatMessage{ID: 3, Body: "rude words", Deleted: true, DeletedBy: &deletedBy}

	event := NewChatMessageEvent(msg)

	assert.Empty(t, event.Message)
	assert.True(t, event.Deleted)
}
