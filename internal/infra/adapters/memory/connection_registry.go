package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/runtime"
)

// ConnectionRegistry tracks every open connection by its connection id.
type ConnectionRegistry interface {
	Add(conn *runtime.Connection)

	// Remove detaches a connection. Removing an unknown id is a no-op.
	Remove(connID uuid.UUID) (*runtime.Connection, bool)

	Get(connID uuid.UUID) (*runtime.Connection, bool)

	Count() int
}

type connectionRegistry struct {
	conns map[uuid.UUID]*runtime.Connection
	mu    sync.RWMutex
}

func NewConnectionRegistry() ConnectionRegistry {
	return &connectionRegistry{
		conns: make(map[uuid.UUID]*runtime.Connection),
	}
}

func (r *connectionRegistry) Add(conn *runtime.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ConnID] = conn
}

func (r *connectionRegistry) Remove(connID uuid.UUID) (*runtime.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	delete(r.conns, connID)

	return conn, true
}

func (r *connectionRegistry) Get(connID uuid.UUID) (*runtime.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]

	return conn, ok
}

func (r *connectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
