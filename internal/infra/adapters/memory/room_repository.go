package memory

import (
	"context"
	"sync"

	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// roomRepository is the in-memory RoomRepository for tests and DB-less runs.
type roomRepository struct {
	rooms map[string]models.Room
	mu    sync.RWMutex
}

func NewRoomRepository() repository.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]models.Room),
	}
}

func (r *roomRepository) GetByID(_ context.Context, roomID string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &room, nil
}

func (r *roomRepository) Create(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.RoomID]; ok {
		return nil
	}

	r.rooms[room.RoomID] = *room

	return nil
}
