// Package client implements the chat client session: one websocket
// connection with automatic reconnect, an outbound queue that buffers
// messages while offline, a heartbeat and a typing-indicator debouncer.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/qrave1/ArenaChat/internal/domain/events"
)

// State is the session lifecycle state.
type State string

const (
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosed       State = "closed"
	StateReconnecting State = "reconnecting"
	// StateGaveUp is terminal: the reconnect budget is exhausted and the
	// application should ask the user to reload.
	StateGaveUp State = "gaveUp"
)

// NoticeKind classifies session status notices. All of them are transient
// except NoticeGaveUp.
type NoticeKind string

const (
	NoticeConnected    NoticeKind = "connected"
	NoticeDisconnected NoticeKind = "disconnected"
	NoticeIdle         NoticeKind = "idle"
	NoticeGaveUp       NoticeKind = "gaveUp"
)

type Notice struct {
	Kind     NoticeKind
	Message  string
	Terminal bool
}

type Options struct {
	// URL is the websocket endpoint, e.g. wss://host/api/v1/ws.
	URL string

	// Token is the session JWT sent as a bearer header on dial.
	Token string

	// BaseBackoff is the first reconnect delay; each failed attempt
	// doubles it. Defaults to 500ms.
	BaseBackoff time.Duration

	// MaxAttempts caps reconnect attempts before giving up. Defaults to 8.
	MaxAttempts int

	// HeartbeatInterval is how often a ping frame is sent while open.
	// Defaults to 25s.
	HeartbeatInterval time.Duration

	// IdleThreshold is how long without any traffic before an idle notice
	// is surfaced. Idleness never forces a reconnect. Defaults to 90s.
	IdleThreshold time.Duration

	// TypingQuiet is the quiet period after which "stopped typing" is
	// sent. Defaults to 3s.
	TypingQuiet time.Duration

	Dialer *websocket.Dialer
}

func (o *Options) withDefaults() {
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}

	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 8
	}

	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 25 * time.Second
	}

	if o.IdleThreshold <= 0 {
		o.IdleThreshold = 90 * time.Second
	}

	if o.TypingQuiet <= 0 {
		o.TypingQuiet = 3 * time.Second
	}

	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
}

// Session is a reconnecting chat session. Messages sent while the
// connection is down are queued and flushed in FIFO order once the session
// reopens, after a fresh join for the last known room.
type Session struct {
	opts Options

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	roomID       string
	queue        []any
	lastActivity time.Time

	notices  chan Notice
	inbound  chan []byte
	typing   *typingDebouncer
	stopOnce sync.Once
	stopped  chan struct{}
}

func New(opts Options) *Session {
	opts.withDefaults()

	s := &Session{
		opts:         opts,
		state:        StateClosed,
		notices:      make(chan Notice, 16),
		inbound:      make(chan []byte, 256),
		stopped:      make(chan struct{}),
		lastActivity: time.Now(),
	}

	s.typing = newTypingDebouncer(opts.TypingQuiet, s.sendTyping)

	return s
}

// Notices surfaces connectivity and rejection status changes.
func (s *Session) Notices() <-chan Notice { return s.notices }

// Inbound delivers raw server frames to the application.
func (s *Session) Inbound() <-chan []byte { return s.inbound }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// QueueLen reports how many messages are waiting for the next reconnect.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// Connect dials the server and starts the session loops. It returns once
// the first connection attempt resolves.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	if err := s.dial(ctx); err != nil {
		s.setState(StateClosed)
		return err
	}

	s.afterOpen(ctx)

	return nil
}

// Close stops the session for good.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stopped)

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}

		s.typing.stop()
	})
}

// Join requests membership in a room and remembers it as the room to
// rejoin after every reconnect.
func (s *Session) Join(roomID string) {
	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()

	s.Send(events.JoinRoom{Type: events.TypeJoinRoom, RoomID: roomID})
}

// SendChat sends one chat message to the current room.
func (s *Session) SendChat(message string) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	s.Send(events.ChatMessage{Type: events.TypeChatMessage, RoomID: roomID, Message: message})
}

// Send writes a message when the session is open and queues it otherwise.
// The queue is unbounded but observable through QueueLen.
func (s *Session) Send(msg any) {
	s.mu.Lock()

	if s.state != StateOpen || s.conn == nil {
		s.queue = append(s.queue, msg)
		queued := len(s.queue)
		s.mu.Unlock()

		slog.Debug("session offline, message queued", slog.Int("queue_len", queued))

		return
	}

	conn := s.conn
	s.lastActivity = time.Now()
	err := conn.WriteJSON(msg)
	s.mu.Unlock()

	if err != nil {
		// the read loop notices the dead connection and reconnects;
		// requeue so the message goes out after
		s.mu.Lock()
		s.queue = append(s.queue, msg)
		s.mu.Unlock()
	}
}

// TypingStarted should be called on every input keystroke; the debouncer
// collapses a burst into one "started" signal.
func (s *Session) TypingStarted() {
	s.typing.started()
}

func (s *Session) sendTyping(isTyping bool) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	if roomID == "" {
		return
	}

	s.Send(events.Typing{Type: events.TypeTyping, RoomID: roomID, IsTyping: isTyping})
}

func (s *Session) dial(ctx context.Context) error {
	header := http.Header{}
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	conn, resp, err := s.opts.Dialer.DialContext(ctx, s.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return fmt.Errorf("dial %s: %w", s.opts.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.lastActivity = time.Now()
	s.mu.Unlock()

	return nil
}

// afterOpen rejoins the last room, flushes the queue exactly once in
// submission order and only then transitions to open. The rejoin and flush
// happen under the same lock that gates Send, so a concurrent Send cannot
// slip a message onto the wire ahead of the backlog.
func (s *Session) afterOpen(ctx context.Context) {
	s.mu.Lock()

	conn := s.conn
	pending := s.queue
	s.queue = nil

	if s.roomID != "" {
		_ = conn.WriteJSON(events.JoinRoom{Type: events.TypeJoinRoom, RoomID: s.roomID})
	}

	for i, msg := range pending {
		if err := conn.WriteJSON(msg); err != nil {
			// the rest goes out after the next reconnect, still in order
			s.queue = pending[i:]
			break
		}
	}

	s.state = StateOpen
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.notify(Notice{Kind: NoticeConnected, Message: "connected"})

	go s.readLoop(ctx, conn)
	go s.heartbeatLoop(ctx, conn)
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopped:
				return
			default:
			}

			s.setState(StateClosed)
			s.notify(Notice{Kind: NoticeDisconnected, Message: "connection lost, reconnecting"})
			s.reconnect(ctx)

			return
		}

		s.mu.Lock()
		s.lastActivity = time.Now()
		s.mu.Unlock()

		select {
		case s.inbound <- raw:
		default:
			slog.Warn("inbound buffer full, dropping frame")
		}
	}
}

func (s *Session) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			open := s.state == StateOpen && s.conn == conn
			idle := time.Since(s.lastActivity) > s.opts.IdleThreshold
			s.mu.Unlock()

			if !open {
				return
			}

			s.Send(events.Ping{Type: events.TypePing})

			if idle {
				s.notify(Notice{Kind: NoticeIdle, Message: "no activity"})
			}
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		}
	}
}

// reconnect retries with exponential backoff until the attempt budget runs
// out, then parks the session in the terminal gave-up state.
func (s *Session) reconnect(ctx context.Context) {
	s.setState(StateReconnecting)

	backoff := retry.WithMaxRetries(uint64(s.opts.MaxAttempts), retry.NewExponential(s.opts.BaseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		select {
		case <-s.stopped:
			return errors.New("session closed")
		default:
		}

		if err := s.dial(ctx); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		s.setState(StateGaveUp)
		s.notify(Notice{Kind: NoticeGaveUp, Message: "connection lost, please reload", Terminal: true})

		return
	}

	s.afterOpen(ctx)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

func (s *Session) notify(n Notice) {
	select {
	case s.notices <- n:
	default:
	}
}
