package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
)

func TestJoinAndPresence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, anaSink := f.connect("ana", models.RoleUser)
	require.NoError(t, f.rooms.Join(ctx, ana, "match-1"))

	joined := anaSink.next(t).(events.RoomJoinedEvent)
	assert.Equal(t, "match-1", joined.RoomID)
	assert.Equal(t, 1, joined.UserCount)
	assert.Nil(t, joined.ActivePoll)

	bob, bobSink := f.connect("bob", models.RoleUser)
	require.NoError(t, f.rooms.Join(ctx, bob, "match-1"))

	bobJoined := bobSink.next(t).(events.RoomJoinedEvent)
	assert.Equal(t, 2, bobJoined.UserCount)

	// ana is told about bob; bob does not hear about his own join
	userJoined := anaSink.next(t).(events.UserJoinedEvent)
	assert.Equal(t, "bob", userJoined.Username)
	assert.Equal(t, 2, userJoined.UserCount)
	bobSink.expectNone(t)
}

func TestDisconnectAnnouncesUserLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, anaSink := f.join(t, "match-1", "ana", models.RoleUser)
	bob, _ := f.join(t, "match-1", "bob", models.RoleUser)

	// drain ana's userJoined for bob
	_ = anaSink.next(t).(events.UserJoinedEvent)

	f.rooms.Disconnect(ctx, bob)

	left := anaSink.next(t).(events.UserLeftEvent)
	assert.Equal(t, "bob", left.Username)
	assert.Equal(t, 1, left.UserCount)

	// a second disconnect of the same connection announces nothing
	f.rooms.Disconnect(ctx, bob)
	anaSink.expectNone(t)
}

func TestRapidJoinLeaveKeepsCountConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conn, sink := f.connect("flapper", models.RoleUser)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.rooms.Join(ctx, conn, "match-1"))

		joined := sink.next(t).(events.RoomJoinedEvent)
		assert.Equal(t, 1, joined.UserCount)

		f.rooms.Disconnect(ctx, conn)
	}

	assert.Equal(t, 0, f.roomRegistry.Count("match-1"))
}

func TestRejoinMovesConnectionBetweenRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conn, sink := f.connect("ana", models.RoleUser)

	require.NoError(t, f.rooms.Join(ctx, conn, "match-1"))
	_ = sink.next(t).(events.RoomJoinedEvent)

	require.NoError(t, f.rooms.Join(ctx, conn, "match-2"))
	joined := sink.next(t).(events.RoomJoinedEvent)
	assert.Equal(t, "match-2", joined.RoomID)

	assert.Equal(t, 0, f.roomRegistry.Count("match-1"))
	assert.Equal(t, 1, f.roomRegistry.Count("match-2"))
	assert.Equal(t, "match-2", conn.RoomID())
}

func TestPostMessageBroadcastsToEveryoneIncludingSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, anaSink := f.join(t, "match-1", "ana", models.RoleUser)
	_, bobSink := f.join(t, "match-1", "bob", models.RoleUser)
	_ = anaSink.next(t).(events.UserJoinedEvent)

	msg, err := f.rooms.PostMessage(ctx, f.identity(ana), "match-1", "glhf")
	require.NoError(t, err)
	require.Positive(t, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())

	anaEvent := anaSink.next(t).(events.ChatMessageEvent)
	bobEvent := bobSink.next(t).(events.ChatMessageEvent)

	// every recipient sees the same server-assigned id and timestamp
	assert.Equal(t, msg.ID, anaEvent.ID)
	assert.Equal(t, anaEvent.ID, bobEvent.ID)
	assert.Equal(t, anaEvent.Timestamp, bobEvent.Timestamp)
	assert.Equal(t, "glhf", bobEvent.Message)
	assert.Equal(t, "ana", bobEvent.Username)
}

func TestBlockedContentIsRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, anaSink := f.join(t, "match-1", "ana", models.RoleUser)
	_, bobSink := f.join(t, "match-1", "bob", models.RoleUser)
	_ = anaSink.next(t).(events.UserJoinedEvent)

	_, err := f.rooms.PostMessage(ctx, f.identity(ana), "match-1", "huge SPOILER ahead")
	require.Error(t, err)

	rejected, ok := AsRejected(err)
	require.True(t, ok)
	assert.Equal(t, ReasonBlockedContent, rejected.Reason)

	// nothing broadcast, nothing stored
	anaSink.expectNone(t)
	bobSink.expectNone(t)

	history, err := f.rooms.FetchSince(ctx, "match-1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEmptyMessageIsRejected(t *testing.T) {
	f := newFixture(t)

	ana, _ := f.join(t, "match-1", "ana", models.RoleUser)

	_, err := f.rooms.PostMessage(context.Background(), f.identity(ana), "match-1", "   ")
	rejected, ok := AsRejected(err)
	require.True(t, ok)
	assert.Equal(t, ReasonEmptyMessage, rejected.Reason)
}

func TestSlowModeLimitsPostingRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.roomRepo.Create(ctx, &models.Room{
		RoomID:          "slow-room",
		SlowModeSeconds: 30,
		Settings:        json.RawMessage(`{}`),
		CreatedAt:       time.Now(),
	}))

	ana, _ := f.join(t, "slow-room", "ana", models.RoleUser)

	_, err := f.rooms.PostMessage(ctx, f.identity(ana), "slow-room", "first")
	require.NoError(t, err)

	_, err = f.rooms.PostMessage(ctx, f.identity(ana), "slow-room", "second")
	rejected, ok := AsRejected(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSlowMode, rejected.Reason)
	assert.Greater(t, rejected.RetryAfter, time.Duration(0))

	// another user is not held back by ana's cooldown
	bob, _ := f.join(t, "slow-room", "bob", models.RoleUser)
	_, err = f.rooms.PostMessage(ctx, f.identity(bob), "slow-room", "hello")
	require.NoError(t, err)
}

func TestPostMessageStoreFailureHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.roomRepo.Create(ctx, &models.Room{
		RoomID:          "slow-room",
		SlowModeSeconds: 30,
		Settings:        json.RawMessage(`{}`),
		CreatedAt:       time.Now(),
	}))

	ana, anaSink := f.join(t, "slow-room", "ana", models.RoleUser)
	_, bobSink := f.join(t, "slow-room", "bob", models.RoleUser)
	_ = anaSink.next(t).(events.UserJoinedEvent)

	f.messageRepo.appendErr = errors.New("connection reset by peer")

	_, err := f.rooms.PostMessage(ctx, f.identity(ana), "slow-room", "hello")
	require.Error(t, err)

	// a store failure is an internal error, not a policy rejection
	_, rejected := AsRejected(err)
	assert.False(t, rejected)

	// nothing broadcast, nothing stored
	anaSink.expectNone(t)
	bobSink.expectNone(t)

	history, err := f.rooms.FetchSince(ctx, "slow-room", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	// the failed attempt did not start the slow-mode cooldown
	f.messageRepo.appendErr = nil

	_, err = f.rooms.PostMessage(ctx, f.identity(ana), "slow-room", "hello again")
	require.NoError(t, err)
}

func TestJoinReplaysHistoryOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, _ := f.join(t, "match-1", "ana", models.RoleUser)

	for _, body := range []string{"one", "two", "three"} {
		_, err := f.rooms.PostMessage(ctx, f.identity(ana), "match-1", body)
		require.NoError(t, err)
	}

	bob, bobSink := f.connect("bob", models.RoleUser)
	require.NoError(t, f.rooms.Join(ctx, bob, "match-1"))

	_ = bobSink.next(t).(events.RoomJoinedEvent)

	var bodies []string
	for i := 0; i < 3; i++ {
		event := bobSink.next(t).(events.ChatMessageEvent)
		bodies = append(bodies, event.Message)
	}

	assert.Equal(t, []string{"one", "two", "three"}, bodies)
}

func TestFetchSinceReturnsOnlyNewerMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, _ := f.join(t, "match-1", "ana", models.RoleUser)

	var ids []int64
	for _, body := range []string{"one", "two", "three"} {
		msg, err := f.rooms.PostMessage(ctx, f.identity(ana), "match-1", body)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	newer, err := f.rooms.FetchSince(ctx, "match-1", ids[0], 10)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	assert.Equal(t, "two", newer[0].Body)
	assert.Equal(t, "three", newer[1].Body)
}

func TestRoomInfoReportsMemberCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.join(t, "match-1", "ana", models.RoleUser)
	f.join(t, "match-1", "bob", models.RoleUser)

	room, count, err := f.rooms.RoomInfo(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, "match-1", room.RoomID)
	assert.Equal(t, 2, count)
}

func TestNotifyTypingExcludesSender(t *testing.T) {
	f := newFixture(t)

	ana, anaSink := f.join(t, "match-1", "ana", models.RoleUser)
	_, bobSink := f.join(t, "match-1", "bob", models.RoleUser)
	_ = anaSink.next(t).(events.UserJoinedEvent)

	f.rooms.NotifyTyping(ana, "match-1", true)

	typing := bobSink.next(t).(events.TypingEvent)
	assert.Equal(t, "ana", typing.Username)
	assert.True(t, typing.IsTyping)
	anaSink.expectNone(t)
}
