package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// ModerationUsecase executes role-gated moderation commands. Authorization
// failures are silent toward the room so unauthorized callers learn nothing
// about membership.
type ModerationUsecase interface {
	Apply(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error

	// LiftRestriction removes a timeout or ban (moderator tier only).
	LiftRestriction(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error
}

type moderationUsecase struct {
	rooms        RoomUsecase
	roomRegistry memory.RoomRegistry
	restrictions memory.RestrictionRepository
	messageRepo  repository.MessageRepository

	now func() time.Time
}

func NewModerationUsecase(
	rooms RoomUsecase,
	roomRegistry memory.RoomRegistry,
	restrictions memory.RestrictionRepository,
	messageRepo repository.MessageRepository,
) ModerationUsecase {
	return &moderationUsecase{
		rooms:        rooms,
		roomRegistry: roomRegistry,
		restrictions: restrictions,
		messageRepo:  messageRepo,
		now:          time.Now,
	}
}

func (uc *moderationUsecase) Apply(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error {
	if !identity.Role.IsModeratorTier() {
		slog.Warn(
			"moderation denied",
			slog.String(constant.UserID, identity.UserID.String()),
			slog.String(constant.RoomID, action.RoomID),
			slog.String("action", string(action.Kind)),
		)

		return ErrDenied
	}

	switch action.Kind {
	case models.ModerationDeleteMessage:
		return uc.deleteMessage(ctx, identity, action)
	case models.ModerationTimeoutUser:
		return uc.timeoutUser(ctx, identity, action)
	case models.ModerationBanUser:
		return uc.banUser(ctx, identity, action)
	default:
		return fmt.Errorf("unknown moderation action %q", action.Kind)
	}
}

func (uc *moderationUsecase) deleteMessage(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error {
	msg, err := uc.messageRepo.MarkDeleted(ctx, action.TargetMessageID, identity.UserID)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", action.TargetMessageID, err)
	}

	// clients replace the body with a placeholder instead of dropping the
	// message, so the timeline keeps its shape
	uc.rooms.Broadcast(msg.RoomID, events.NewMessageDeletedEvent(msg.ID))

	slog.Info(
		"message deleted",
		slog.Int64(constant.MessageID, msg.ID),
		slog.String(constant.RoomID, msg.RoomID),
		slog.String(constant.UserID, identity.UserID.String()),
	)

	return nil
}

func (uc *moderationUsecase) timeoutUser(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error {
	if action.DurationSeconds <= 0 {
		return reject(ReasonInvalidDuration, "timeout duration must be positive")
	}

	uc.restrictions.Upsert(ctx, models.Restriction{
		RoomID:    action.RoomID,
		UserID:    action.TargetUserID,
		ExpiresAt: uc.now().Add(time.Duration(action.DurationSeconds) * time.Second),
	})

	uc.rooms.Broadcast(action.RoomID, events.NewUserTimeoutEvent(action.TargetUserID, action.DurationSeconds))

	slog.Info(
		"user timed out",
		slog.String(constant.RoomID, action.RoomID),
		slog.String(constant.UserID, action.TargetUserID.String()),
		slog.Int("duration_seconds", action.DurationSeconds),
		slog.String("actor", identity.UserID.String()),
	)

	return nil
}

func (uc *moderationUsecase) banUser(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error {
	uc.restrictions.Upsert(ctx, models.Restriction{
		RoomID: action.RoomID,
		UserID: action.TargetUserID,
		Banned: true,
	})

	uc.rooms.Broadcast(action.RoomID, events.NewUserBannedEvent(action.TargetUserID))

	// closing the transport makes the read loop exit, which runs the normal
	// teardown and removes the membership
	for _, conn := range uc.roomRegistry.ConnectionsOf(action.RoomID, action.TargetUserID) {
		conn.Close()
	}

	slog.Info(
		"user banned",
		slog.String(constant.RoomID, action.RoomID),
		slog.String(constant.UserID, action.TargetUserID.String()),
		slog.String("actor", identity.UserID.String()),
	)

	return nil
}

func (uc *moderationUsecase) LiftRestriction(ctx context.Context, identity appctx.Identity, action models.ModerationAction) error {
	if !identity.Role.IsModeratorTier() {
		return ErrDenied
	}

	uc.restrictions.Lift(ctx, action.RoomID, action.TargetUserID)

	return nil
}
