package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// MessageRepository is the durable append-only message log. Append assigns
// the monotonic id and server timestamp; MarkDeleted is the only in-place
// mutation (soft delete).
type MessageRepository interface {
	Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	RecentHistory(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error)
	Since(ctx context.Context, roomID string, afterID int64, limit int) ([]models.ChatMessage, error)
	MarkDeleted(ctx context.Context, messageID int64, deletedBy uuid.UUID) (models.ChatMessage, error)
}

// VoteRepository is the durable vote table keyed by (poll_id, user_id).
// Upsert overwrites an existing row; this is the one intentionally
// idempotent write in the system.
type VoteRepository interface {
	Upsert(ctx context.Context, vote models.Vote) error
	VotesForPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
}

// RoomRepository stores room settings.
type RoomRepository interface {
	GetByID(ctx context.Context, roomID string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}
