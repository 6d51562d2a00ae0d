package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/ArenaChat/internal/application/config"
	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/application/metric"
	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/domain/runtime"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/ArenaChat/internal/usecase"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	connRegistry memory.ConnectionRegistry
	rooms        usecase.RoomUsecase
	moderation   usecase.ModerationUsecase
	polls        usecase.PollUsecase
}

func NewWebSocketHandler(
	cfg *config.Config,
	connRegistry memory.ConnectionRegistry,
	rooms usecase.RoomUsecase,
	moderation usecase.ModerationUsecase,
	polls usecase.PollUsecase,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		connRegistry: connRegistry,
		rooms:        rooms,
		moderation:   moderation,
		polls:        polls,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	identity, ok := appctx.IdentityFrom(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "no identity"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}

	conn := runtime.NewConnection(identity.UserID, identity.Username, identity.Role, ws)

	h.connRegistry.Add(conn)
	metric.IncrementWSActiveConnections()

	defer func() {
		h.rooms.Disconnect(c.Request().Context(), conn)
		h.connRegistry.Remove(conn.ConnID)
		conn.Close()
		metric.DecrementWSActiveConnections()
	}()

	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(c.Request().Context(), ws)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn(
					"webSocket read error",
					slog.String(constant.ConnID, conn.ConnID.String()),
					slog.Any(constant.Error, err),
				)
			}

			return nil
		}

		msg, err := events.DecodeClientMessage(raw)
		if err != nil {
			slog.Warn(
				"decode websocket message",
				slog.String(constant.ConnID, conn.ConnID.String()),
				slog.Any(constant.Error, err),
			)
			conn.Send(events.NewErrorEvent("malformed message"))

			continue
		}

		h.handleMessage(c.Request().Context(), identity, conn, msg)
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with the connection's writer goroutine.
func pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) handleMessage(
	ctx context.Context,
	identity appctx.Identity,
	conn *runtime.Connection,
	msg events.ClientMessage,
) {
	switch m := msg.(type) {
	case events.JoinRoom:
		if err := h.rooms.Join(ctx, conn, m.RoomID); err != nil {
			h.replyError(conn, err)
		}

	case events.LeaveRoom:
		h.rooms.Disconnect(ctx, conn)

	case events.ChatMessage:
		roomID := conn.RoomID()
		if roomID == "" {
			conn.Send(events.NewErrorEvent("join a room first"))
			return
		}

		if _, err := h.rooms.PostMessage(ctx, identity, roomID, m.Message); err != nil {
			h.replyError(conn, err)
		}

	case events.PollCreate:
		roomID := conn.RoomID()
		if roomID == "" {
			conn.Send(events.NewErrorEvent("join a room first"))
			return
		}

		if _, err := h.polls.Create(ctx, identity, roomID, m.Question, m.Options, m.DurationSeconds); err != nil {
			h.replyError(conn, err)
		}

	case events.PollVote:
		if _, err := h.polls.Vote(ctx, identity, m.PollID, m.OptionIndex); err != nil {
			h.replyError(conn, err)
		}

	case events.PollEnd:
		if _, err := h.polls.End(ctx, identity, m.PollID); err != nil {
			h.replyError(conn, err)
		}

	case events.Moderate:
		roomID := conn.RoomID()
		if roomID == "" {
			return
		}

		action := models.ModerationAction{
			Kind:            m.Action,
			TargetUserID:    m.TargetUserID,
			TargetMessageID: m.MessageID,
			RoomID:          roomID,
			DurationSeconds: m.DurationSeconds,
		}

		if err := h.moderation.Apply(ctx, identity, action); err != nil {
			h.replyError(conn, err)
		}

	case events.Typing:
		if roomID := conn.RoomID(); roomID != "" {
			h.rooms.NotifyTyping(conn, roomID, m.IsTyping)
		}

	case events.Ping:
		conn.Send(events.NewPongEvent())
	}
}

// replyError reports a failure to the originating connection only.
// Authorization denials stay silent.
func (h *WebSocketHandler) replyError(conn *runtime.Connection, err error) {
	if errors.Is(err, usecase.ErrDenied) {
		return
	}

	if rejected, ok := usecase.AsRejected(err); ok {
		switch rejected.Reason {
		case usecase.ReasonSlowMode:
			conn.Send(events.NewSlowModeEvent(rejected.Message))
		case usecase.ReasonEmptyMessage,
			usecase.ReasonBlockedContent,
			usecase.ReasonTimedOut,
			usecase.ReasonBanned:
			conn.Send(events.NewMessageBlockedEvent(string(rejected.Reason)))
		default:
			conn.Send(events.NewErrorEvent(string(rejected.Reason)))
		}

		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		conn.Send(events.NewErrorEvent("not found"))
		return
	}

	slog.Error(
		"handle client message",
		slog.String(constant.ConnID, conn.ConnID.String()),
		slog.Any(constant.Error, err),
	)
	conn.Send(events.NewErrorEvent("internal error, try again"))
}
