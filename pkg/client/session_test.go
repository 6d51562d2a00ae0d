package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// chatServer is a minimal websocket endpoint that records every frame it
// receives.
type chatServer struct {
	srv    *httptest.Server
	frames chan frame
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()

	cs := &chatServer{frames: make(chan frame, 64)}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		_ = conn.WriteJSON(frame{Type: "roomJoined", RoomID: "welcome"})

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}

			cs.frames <- f
		}
	}))

	t.Cleanup(cs.srv.Close)

	return cs
}

func (cs *chatServer) wsURL() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *chatServer) nextFrame(t *testing.T) frame {
	t.Helper()

	select {
	case f := <-cs.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func nextNotice(t *testing.T, s *Session) Notice {
	t.Helper()

	select {
	case n := <-s.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
		return Notice{}
	}
}

func TestQueuedMessagesFlushInOrderAfterConnect(t *testing.T) {
	cs := newChatServer(t)

	s := New(Options{URL: cs.wsURL()})
	defer s.Close()

	// everything sent before the first connect waits in the queue
	s.Join("match-1")
	s.SendChat("one")
	s.SendChat("two")
	require.Equal(t, 3, s.QueueLen())

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, StateOpen, s.State())

	notice := nextNotice(t, s)
	assert.Equal(t, NoticeConnected, notice.Kind)

	// the room is rejoined before any queued traffic goes out
	first := cs.nextFrame(t)
	assert.Equal(t, "joinRoom", first.Type)
	assert.Equal(t, "match-1", first.RoomID)

	var chats []string
	for len(chats) < 2 {
		f := cs.nextFrame(t)
		if f.Type == "chatMessage" {
			chats = append(chats, f.Message)
		}
	}

	assert.Equal(t, []string{"one", "two"}, chats)
	assert.Equal(t, 0, s.QueueLen())
}

func TestConcurrentSendsNeverOvertakeQueuedBacklog(t *testing.T) {
	cs := newChatServer(t)

	s := New(Options{URL: cs.wsURL()})
	defer s.Close()

	s.Join("match-1")
	s.SendChat("one")
	s.SendChat("two")

	// hammer the session from another goroutine while it is opening
	done := make(chan struct{})
	go func() {
		defer close(done)

		for i := 0; i < 25; i++ {
			s.SendChat("live")
		}
	}()

	require.NoError(t, s.Connect(context.Background()))
	<-done

	first := cs.nextFrame(t)
	assert.Equal(t, "joinRoom", first.Type)

	var chats []string
	for {
		f := cs.nextFrame(t)
		if f.Type != "chatMessage" {
			continue
		}

		chats = append(chats, f.Message)
		if f.Message == "two" {
			break
		}
	}

	// the backlog goes out first; no concurrent send may overtake it
	assert.Equal(t, []string{"one", "two"}, chats)
}

func TestInboundDeliversServerFrames(t *testing.T) {
	cs := newChatServer(t)

	s := New(Options{URL: cs.wsURL()})
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	select {
	case raw := <-s.Inbound():
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		assert.Equal(t, "roomJoined", f.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound frame")
	}
}

func TestReconnectGivesUpAfterBudget(t *testing.T) {
	cs := newChatServer(t)

	s := New(Options{
		URL:         cs.wsURL(),
		BaseBackoff: 5 * time.Millisecond,
		MaxAttempts: 2,
	})
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	// killing the server fails the read loop and every redial attempt
	cs.srv.CloseClientConnections()
	cs.srv.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		notice := nextNotice(t, s)
		if notice.Kind == NoticeGaveUp {
			assert.True(t, notice.Terminal)
			break
		}

		require.True(t, time.Now().Before(deadline), "gave-up notice never arrived")
	}

	assert.Equal(t, StateGaveUp, s.State())

	// messages sent now are parked for a reconnect that will not happen
	s.SendChat("into the void")
	assert.Equal(t, 1, s.QueueLen())
}
