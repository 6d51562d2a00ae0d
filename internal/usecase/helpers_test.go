package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ArenaChat/internal/application/config"
	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/domain/runtime"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// testSink records everything written to a connection.
type testSink struct {
	ch chan any

	mu     sync.Mutex
	closed bool
}

func newTestSink() *testSink {
	return &testSink{ch: make(chan any, 128)}
}

func (s *testSink) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("sink closed")
	}

	s.ch <- v

	return nil
}

func (s *testSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *testSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// next waits for the next payload written to the sink.
func (s *testSink) next(t *testing.T) any {
	t.Helper()

	select {
	case v := <-s.ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// expectNone asserts nothing arrives within a short window.
func (s *testSink) expectNone(t *testing.T) {
	t.Helper()

	select {
	case v := <-s.ch:
		t.Fatalf("unexpected event: %#v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

// flakyMessageRepo wraps the in-memory store so tests can fail the append
// path and watch what the usecase does with a dead store.
type flakyMessageRepo struct {
	repository.MessageRepository

	appendErr error
}

func (r *flakyMessageRepo) Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if r.appendErr != nil {
		return models.ChatMessage{}, r.appendErr
	}

	return r.MessageRepository.Append(ctx, msg)
}

type flakyVoteRepo struct {
	repository.VoteRepository

	upsertErr error
}

func (r *flakyVoteRepo) Upsert(ctx context.Context, vote models.Vote) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}

	return r.VoteRepository.Upsert(ctx, vote)
}

type fixture struct {
	cfg *config.Config

	roomRegistry memory.RoomRegistry
	restrictions memory.RestrictionRepository
	messageRepo  *flakyMessageRepo
	voteRepo     *flakyVoteRepo
	roomRepo     repository.RoomRepository
	pollRepo     memory.PollRepository

	rooms      RoomUsecase
	moderation ModerationUsecase
	polls      PollUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		cfg: &config.Config{
			Chat: config.ChatConfig{
				HistorySize:  50,
				BlockedWords: []string{"spoiler"},
			},
		},
		roomRegistry: memory.NewRoomRegistry(),
		restrictions: memory.NewRestrictionRepository(),
		messageRepo:  &flakyMessageRepo{MessageRepository: memory.NewMessageRepository()},
		voteRepo:     &flakyVoteRepo{VoteRepository: memory.NewVoteRepository()},
		roomRepo:     memory.NewRoomRepository(),
		pollRepo:     memory.NewPollRepository(),
	}

	f.rooms = NewRoomUsecase(
		f.cfg,
		f.roomRegistry,
		f.restrictions,
		f.roomRepo,
		f.messageRepo,
		NewAllowAllAuthorizer(),
		NewBlocklistPolicy(f.cfg.Chat.BlockedWords),
		NewSlowModePolicy(),
	)
	f.polls = NewPollUsecase(f.rooms, f.pollRepo, f.voteRepo)
	f.rooms.SetPollReader(f.polls)
	f.moderation = NewModerationUsecase(f.rooms, f.roomRegistry, f.restrictions, f.messageRepo)

	return f
}

func (f *fixture) connect(username string, role models.Role) (*runtime.Connection, *testSink) {
	sink := newTestSink()
	conn := runtime.NewConnection(uuid.New(), username, role, sink)

	return conn, sink
}

// join connects a user, joins the room and drains the joiner's own
// roomJoined (plus any history replay), leaving the sink quiet.
func (f *fixture) join(t *testing.T, roomID, username string, role models.Role) (*runtime.Connection, *testSink) {
	t.Helper()

	conn, sink := f.connect(username, role)

	require.NoError(t, f.rooms.Join(context.Background(), conn, roomID))

	joined, ok := sink.next(t).(events.RoomJoinedEvent)
	require.True(t, ok, "first event after join must be roomJoined")
	require.Equal(t, roomID, joined.RoomID)

	for {
		select {
		case v := <-sink.ch:
			_, isHistory := v.(events.ChatMessageEvent)
			require.True(t, isHistory, "unexpected event during join: %#v", v)
		case <-time.After(50 * time.Millisecond):
			return conn, sink
		}
	}
}

func (f *fixture) identity(conn *runtime.Connection) appctx.Identity {
	return appctx.Identity{UserID: conn.UserID, Username: conn.Username, Role: conn.Role}
}
