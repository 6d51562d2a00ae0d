package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/domain/runtime"
)

type recordingSink struct {
	mu       sync.Mutex
	payloads []any
}

func (s *recordingSink) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payloads = append(s.payloads, v)

	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.payloads)
}

func newMember(role models.Role) (*runtime.Connection, *recordingSink) {
	sink := &recordingSink{}
	return runtime.NewConnection(uuid.New(), "member", role, sink), sink
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("condition never met")
}

func TestRoomRegistryAddRemove(t *testing.T) {
	reg := NewRoomRegistry()

	conn, _ := newMember(models.RoleUser)

	assert.Equal(t, 1, reg.Add("room-1", conn))
	assert.Equal(t, 1, reg.Count("room-1"))

	count, wasMember := reg.Remove("room-1", conn.ConnID)
	assert.Equal(t, 0, count)
	assert.True(t, wasMember)

	// removing again is a no-op
	count, wasMember = reg.Remove("room-1", conn.ConnID)
	assert.Equal(t, 0, count)
	assert.False(t, wasMember)

	// the empty room is gone
	assert.Equal(t, 0, reg.Count("room-1"))
}

func TestRoomRegistryBroadcastExcludesAndFilters(t *testing.T) {
	reg := NewRoomRegistry()

	sender, senderSink := newMember(models.RoleUser)
	viewer, viewerSink := newMember(models.RoleUser)
	mod, modSink := newMember(models.RoleModerator)

	reg.Add("room-1", sender)
	reg.Add("room-1", viewer)
	reg.Add("room-1", mod)

	reg.Broadcast("room-1", "hello", sender.ConnID, nil)

	waitFor(t, func() bool { return viewerSink.count() == 1 && modSink.count() == 1 })
	assert.Equal(t, 0, senderSink.count())

	reg.Broadcast("room-1", "mods only", uuid.Nil, func(c *runtime.Connection) bool {
		return c.Role.IsModeratorTier()
	})

	waitFor(t, func() bool { return modSink.count() == 2 })
	assert.Equal(t, 1, viewerSink.count())
}

func TestRoomRegistryConnectionsOf(t *testing.T) {
	reg := NewRoomRegistry()

	userID := uuid.New()
	first := runtime.NewConnection(userID, "dual", models.RoleUser, &recordingSink{})
	second := runtime.NewConnection(userID, "dual", models.RoleUser, &recordingSink{})
	other, _ := newMember(models.RoleUser)

	reg.Add("room-1", first)
	reg.Add("room-1", second)
	reg.Add("room-1", other)

	conns := reg.ConnectionsOf("room-1", userID)
	require.Len(t, conns, 2)

	assert.Empty(t, reg.ConnectionsOf("room-1", uuid.New()))
	assert.Empty(t, reg.ConnectionsOf("no-such-room", userID))
}
