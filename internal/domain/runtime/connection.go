// Package runtime holds in-memory state of live connections.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// outboxSize bounds the per-connection backlog. A recipient that falls this
// far behind is disconnected instead of stalling the room.
const outboxSize = 64

// Sink is the transport side of a connection. *websocket.Conn satisfies it.
type Sink interface {
	WriteJSON(v any) error
	Close() error
}

// Connection is one live client connection with its authenticated identity.
// Writes go through a bounded outbox drained by a single writer goroutine,
// so Send never blocks the caller and frames for one recipient stay ordered.
type Connection struct {
	ConnID   uuid.UUID
	UserID   uuid.UUID
	Username string
	Role     models.Role

	sink   Sink
	outbox chan any
	done   chan struct{}

	mu     sync.Mutex
	roomID string

	closeOnce sync.Once
}

func NewConnection(userID uuid.UUID, username string, role models.Role, sink Sink) *Connection {
	c := &Connection{
		ConnID:   uuid.New(),
		UserID:   userID,
		Username: username,
		Role:     role,
		sink:     sink,
		outbox:   make(chan any, outboxSize),
		done:     make(chan struct{}),
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case payload := <-c.outbox:
			if err := c.sink.WriteJSON(payload); err != nil {
				slog.Warn(
					"write to connection failed",
					slog.String(constant.ConnID, c.ConnID.String()),
					slog.Any(constant.Error, err),
				)
				c.Close()

				return
			}
		case <-c.done:
			return
		}
	}
}

// Send enqueues a payload without blocking. When the outbox is full the
// connection is closed rather than letting one slow client hold up a room.
func (c *Connection) Send(payload any) {
	select {
	case <-c.done:
	case c.outbox <- payload:
	default:
		slog.Warn(
			"connection backlog exceeded, dropping client",
			slog.String(constant.ConnID, c.ConnID.String()),
			slog.String(constant.UserID, c.UserID.String()),
		)
		c.Close()
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		if err := c.sink.Close(); err != nil {
			slog.Debug(
				"close connection sink",
				slog.String(constant.ConnID, c.ConnID.String()),
				slog.Any(constant.Error, err),
			)
		}
	})
}

// Closed reports whether the connection has been torn down.
func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// RoomID returns the room this connection currently belongs to, empty when
// not joined. A connection is in at most one room.
func (c *Connection) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.roomID
}

func (c *Connection) SetRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roomID = roomID
}
