package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/runtime"
)

// RoomRegistry owns per-room membership. All membership changes and
// broadcast enqueueing for one room happen under that room's mutex, which is
// what gives broadcasts their per-room ordering guarantee.
type RoomRegistry interface {
	// Add puts a connection into a room and returns the new member count.
	Add(roomID string, conn *runtime.Connection) int

	// Remove is idempotent; it reports the remaining member count and
	// whether the connection was actually a member.
	Remove(roomID string, connID uuid.UUID) (int, bool)

	Count(roomID string) int

	// Broadcast enqueues payload to every member except exclude (uuid.Nil
	// excludes nobody). A nil filter sends to all members; otherwise only to
	// those the filter accepts. A dead member is skipped, never waited on.
	Broadcast(roomID string, payload any, exclude uuid.UUID, filter func(*runtime.Connection) bool)

	// ConnectionsOf returns the live connections a user has in a room.
	ConnectionsOf(roomID string, userID uuid.UUID) []*runtime.Connection
}

type room struct {
	members map[uuid.UUID]*runtime.Connection
	mu      sync.Mutex
}

type roomRegistry struct {
	rooms map[string]*room
	mu    sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*room),
	}
}

func (r *roomRegistry) getOrCreate(roomID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[uuid.UUID]*runtime.Connection)}
		r.rooms[roomID] = rm
	}

	return rm
}

func (r *roomRegistry) get(roomID string) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]

	return rm, ok
}

func (r *roomRegistry) Add(roomID string, conn *runtime.Connection) int {
	rm := r.getOrCreate(roomID)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.members[conn.ConnID] = conn

	return len(rm.members)
}

func (r *roomRegistry) Remove(roomID string, connID uuid.UUID) (int, bool) {
	rm, ok := r.get(roomID)
	if !ok {
		return 0, false
	}

	rm.mu.Lock()
	_, member := rm.members[connID]
	delete(rm.members, connID)
	count := len(rm.members)
	rm.mu.Unlock()

	if count == 0 {
		r.mu.Lock()
		if rm, ok := r.rooms[roomID]; ok {
			rm.mu.Lock()
			if len(rm.members) == 0 {
				delete(r.rooms, roomID)
			}
			rm.mu.Unlock()
		}
		r.mu.Unlock()
	}

	return count, member
}

func (r *roomRegistry) Count(roomID string) int {
	rm, ok := r.get(roomID)
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	return len(rm.members)
}

func (r *roomRegistry) Broadcast(roomID string, payload any, exclude uuid.UUID, filter func(*runtime.Connection) bool) {
	rm, ok := r.get(roomID)
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for connID, conn := range rm.members {
		if connID == exclude {
			continue
		}

		if filter != nil && !filter(conn) {
			continue
		}

		conn.Send(payload)
	}
}

func (r *roomRegistry) ConnectionsOf(roomID string, userID uuid.UUID) []*runtime.Connection {
	rm, ok := r.get(roomID)
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	var conns []*runtime.Connection

	for _, conn := range rm.members {
		if conn.UserID == userID {
			conns = append(conns, conn)
		}
	}

	return conns
}
