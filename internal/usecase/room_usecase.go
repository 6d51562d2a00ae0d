package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/application/config"
	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/application/metric"
	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/domain/runtime"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// JoinAuthorizer answers "may this user join this room". It is an external
// collaborator; the default implementation allows everyone.
type JoinAuthorizer interface {
	CanJoin(ctx context.Context, identity appctx.Identity, roomID string) error
}

type allowAllAuthorizer struct{}

func NewAllowAllAuthorizer() JoinAuthorizer {
	return allowAllAuthorizer{}
}

func (allowAllAuthorizer) CanJoin(context.Context, appctx.Identity, string) error {
	return nil
}

// RoomUsecase is the transport-agnostic room service. Both the websocket
// handler and the polling HTTP fallback go through it, so block-list,
// slow-mode and ordering rules hold on either path.
type RoomUsecase interface {
	// Join attaches a connection to a room, replies with roomJoined plus
	// recent history on the joining connection, and announces the join to
	// the other members.
	Join(ctx context.Context, conn *runtime.Connection, roomID string) error

	// Leave removes membership without notifying the room.
	Leave(ctx context.Context, conn *runtime.Connection)

	// Disconnect is the teardown path: removes membership, announces
	// userLeft, idempotent.
	Disconnect(ctx context.Context, conn *runtime.Connection)

	// PostMessage validates, persists and broadcasts one chat message.
	PostMessage(ctx context.Context, identity appctx.Identity, roomID, body string) (models.ChatMessage, error)

	// FetchSince returns messages with id greater than afterID, oldest
	// first, for the polling fallback transport.
	FetchSince(ctx context.Context, roomID string, afterID int64, limit int) ([]models.ChatMessage, error)

	// RoomInfo returns settings and the current member count.
	RoomInfo(ctx context.Context, roomID string) (*models.Room, int, error)

	Broadcast(roomID string, payload any)
	BroadcastToModerators(roomID string, payload any)

	// NotifyTyping relays a typing indicator to the other room members.
	NotifyTyping(conn *runtime.Connection, roomID string, isTyping bool)

	// SetPollReader wires the poll engine in after construction; the poll
	// usecase itself needs this usecase for broadcasting.
	SetPollReader(polls PollReader)
}

type roomUsecase struct {
	cfg *config.Config

	roomRegistry memory.RoomRegistry
	restrictions memory.RestrictionRepository
	roomRepo     repository.RoomRepository
	messageRepo  repository.MessageRepository

	authorizer JoinAuthorizer
	content    ContentPolicy
	rateLimit  RateLimitPolicy

	polls PollReader

	now func() time.Time
}

// PollReader is what the room usecase needs from the poll engine: the
// active poll to include in roomJoined. Kept narrow to avoid a dependency
// cycle with the poll usecase.
type PollReader interface {
	ActiveForRoom(ctx context.Context, roomID string) *models.Poll
}

func NewRoomUsecase(
	cfg *config.Config,
	roomRegistry memory.RoomRegistry,
	restrictions memory.RestrictionRepository,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	authorizer JoinAuthorizer,
	content ContentPolicy,
	rateLimit RateLimitPolicy,
) RoomUsecase {
	return &roomUsecase{
		cfg:          cfg,
		roomRegistry: roomRegistry,
		restrictions: restrictions,
		roomRepo:     roomRepo,
		messageRepo:  messageRepo,
		authorizer:   authorizer,
		content:      content,
		rateLimit:    rateLimit,
		now:          time.Now,
	}
}

func (uc *roomUsecase) SetPollReader(polls PollReader) {
	uc.polls = polls
}

func (uc *roomUsecase) Join(ctx context.Context, conn *runtime.Connection, roomID string) error {
	identity := appctx.Identity{UserID: conn.UserID, Username: conn.Username, Role: conn.Role}

	if err := uc.authorizer.CanJoin(ctx, identity, roomID); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}

	room, err := uc.roomSettings(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room settings: %w", err)
	}

	// a connection is in at most one room; rejoining moves it
	if prev := conn.RoomID(); prev != "" && prev != roomID {
		uc.Leave(ctx, conn)
	}

	count := uc.roomRegistry.Add(roomID, conn)
	conn.SetRoomID(roomID)

	var activePoll *models.Poll
	if uc.polls != nil {
		activePoll = uc.polls.ActiveForRoom(ctx, roomID)
	}

	conn.Send(events.NewRoomJoinedEvent(roomID, room.Settings, count, activePoll))

	history, err := uc.messageRepo.RecentHistory(ctx, roomID, uc.cfg.Chat.HistorySize)
	if err != nil {
		slog.Error(
			"load room history",
			slog.String(constant.RoomID, roomID),
			slog.Any(constant.Error, err),
		)
	}

	for _, msg := range history {
		conn.Send(events.NewChatMessageEvent(msg))
	}

	uc.roomRegistry.Broadcast(roomID, events.NewUserJoinedEvent(conn.Username, count), conn.ConnID, nil)

	slog.Info(
		"user joined room",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.UserID, conn.UserID.String()),
	)

	return nil
}

func (uc *roomUsecase) Leave(_ context.Context, conn *runtime.Connection) {
	roomID := conn.RoomID()
	if roomID == "" {
		return
	}

	uc.roomRegistry.Remove(roomID, conn.ConnID)
	conn.SetRoomID("")
}

func (uc *roomUsecase) Disconnect(_ context.Context, conn *runtime.Connection) {
	roomID := conn.RoomID()
	if roomID == "" {
		return
	}

	count, wasMember := uc.roomRegistry.Remove(roomID, conn.ConnID)
	conn.SetRoomID("")

	if !wasMember {
		return
	}

	uc.roomRegistry.Broadcast(roomID, events.NewUserLeftEvent(conn.Username, count), conn.ConnID, nil)
}

func (uc *roomUsecase) PostMessage(ctx context.Context, identity appctx.Identity, roomID, body string) (models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		metric.RecordChatMessage("empty")
		return models.ChatMessage{}, reject(ReasonEmptyMessage, "message is empty")
	}

	if restriction, ok := uc.restrictions.Get(ctx, roomID, identity.UserID); ok {
		metric.RecordChatMessage("restricted")

		if restriction.Banned {
			return models.ChatMessage{}, reject(ReasonBanned, "you are banned from this room")
		}

		return models.ChatMessage{}, &RejectedError{
			Reason:     ReasonTimedOut,
			Message:    "you are timed out",
			RetryAfter: restriction.ExpiresAt.Sub(uc.now()),
		}
	}

	if uc.content.IsBlocked(roomID, body) {
		metric.RecordChatMessage("blocked")
		return models.ChatMessage{}, reject(ReasonBlockedContent, "message contains blocked content")
	}

	interval, err := uc.slowModeInterval(ctx, roomID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	if remaining, limited := uc.rateLimit.IsLimited(roomID, identity.UserID, interval); limited {
		metric.RecordChatMessage("slow_mode")

		return models.ChatMessage{}, &RejectedError{
			Reason:     ReasonSlowMode,
			Message:    fmt.Sprintf("slow mode is on, wait %s", remaining.Round(time.Second)),
			RetryAfter: remaining,
		}
	}

	// persist first: a message that failed to persist is never broadcast
	msg, err := uc.messageRepo.Append(ctx, models.ChatMessage{
		RoomID:   roomID,
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
		Body:     body,
	})
	if err != nil {
		metric.RecordChatMessage("store_error")
		return models.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}

	uc.rateLimit.RecordPost(roomID, identity.UserID)

	// the sender gets the broadcast too, so its UI shows the
	// server-assigned id and timestamp
	uc.Broadcast(roomID, events.NewChatMessageEvent(msg))

	metric.RecordChatMessage("accepted")

	return msg, nil
}

func (uc *roomUsecase) FetchSince(ctx context.Context, roomID string, afterID int64, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > uc.cfg.Chat.HistorySize {
		limit = uc.cfg.Chat.HistorySize
	}

	if afterID <= 0 {
		return uc.messageRepo.RecentHistory(ctx, roomID, limit)
	}

	return uc.messageRepo.Since(ctx, roomID, afterID, limit)
}

func (uc *roomUsecase) RoomInfo(ctx context.Context, roomID string) (*models.Room, int, error) {
	room, err := uc.roomSettings(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}

	return room, uc.roomRegistry.Count(roomID), nil
}

func (uc *roomUsecase) Broadcast(roomID string, payload any) {
	metric.RecordBroadcast()
	uc.roomRegistry.Broadcast(roomID, payload, uuid.Nil, nil)
}

func (uc *roomUsecase) BroadcastToModerators(roomID string, payload any) {
	metric.RecordBroadcast()
	uc.roomRegistry.Broadcast(roomID, payload, uuid.Nil, func(conn *runtime.Connection) bool {
		return conn.Role.IsModeratorTier()
	})
}

func (uc *roomUsecase) NotifyTyping(conn *runtime.Connection, roomID string, isTyping bool) {
	uc.roomRegistry.Broadcast(roomID, events.NewTypingEvent(conn.Username, isTyping), conn.ConnID, nil)
}

// roomSettings loads a room row, lazily creating a default one for rooms
// that have never been configured.
func (uc *roomUsecase) roomSettings(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err == nil {
		return room, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	room = &models.Room{
		RoomID:          roomID,
		SlowModeSeconds: uc.cfg.Chat.SlowModeSeconds,
		Settings:        json.RawMessage("{}"),
		CreatedAt:       uc.now(),
	}

	if err := uc.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

func (uc *roomUsecase) slowModeInterval(ctx context.Context, roomID string) (time.Duration, error) {
	room, err := uc.roomSettings(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("room settings: %w", err)
	}

	return time.Duration(room.SlowModeSeconds) * time.Second, nil
}
