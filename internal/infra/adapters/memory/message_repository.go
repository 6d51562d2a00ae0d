package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// messageRepository is the in-memory MessageRepository used in tests and
// when running without Postgres. Same contract as the durable one:
// monotonic ids, server timestamps, soft delete.
type messageRepository struct {
	byRoom map[string][]*models.ChatMessage
	byID   map[int64]*models.ChatMessage
	nextID int64
	mu     sync.Mutex

	now func() time.Time
}

func NewMessageRepository() repository.MessageRepository {
	return &messageRepository{
		byRoom: make(map[string][]*models.ChatMessage),
		byID:   make(map[int64]*models.ChatMessage),
		now:    time.Now,
	}
}

func (r *messageRepository) Append(_ context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	msg.CreatedAt = r.now().UTC()

	stored := msg
	r.byRoom[msg.RoomID] = append(r.byRoom[msg.RoomID], &stored)
	r.byID[msg.ID] = &stored

	return msg, nil
}

func (r *messageRepository) RecentHistory(_ context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.byRoom[roomID]

	var history []models.ChatMessage

	for i := len(all) - 1; i >= 0 && len(history) < limit; i-- {
		if all[i].Deleted {
			continue
		}

		history = append(history, *all[i])
	}

	// collected newest-first, callers want oldest-first
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

func (r *messageRepository) Since(_ context.Context, roomID string, afterID int64, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var messages []models.ChatMessage

	for _, msg := range r.byRoom[roomID] {
		if msg.ID <= afterID || msg.Deleted {
			continue
		}

		messages = append(messages, *msg)

		if len(messages) == limit {
			break
		}
	}

	return messages, nil
}

func (r *messageRepository) MarkDeleted(_ context.Context, messageID int64, deletedBy uuid.UUID) (models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.byID[messageID]
	if !ok {
		return models.ChatMessage{}, repository.ErrNotFound
	}

	msg.Deleted = true
	msg.DeletedBy = &deletedBy

	return *msg, nil
}
