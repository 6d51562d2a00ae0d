package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// RestrictionRepository keeps per-room timeouts and bans. Expired timeouts
// are pruned lazily on read.
type RestrictionRepository interface {
	Upsert(ctx context.Context, restriction models.Restriction)

	// Get returns the active restriction for a user in a room, if any.
	Get(ctx context.Context, roomID string, userID uuid.UUID) (models.Restriction, bool)

	// Lift removes a restriction regardless of kind.
	Lift(ctx context.Context, roomID string, userID uuid.UUID)
}

type restrictionKey struct {
	roomID string
	userID uuid.UUID
}

type restrictionRepository struct {
	restrictions map[restrictionKey]models.Restriction
	mu           sync.Mutex

	now func() time.Time
}

func NewRestrictionRepository() RestrictionRepository {
	return &restrictionRepository{
		restrictions: make(map[restrictionKey]models.Restriction),
		now:          time.Now,
	}
}

func (r *restrictionRepository) Upsert(_ context.Context, restriction models.Restriction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.restrictions[restrictionKey{roomID: restriction.RoomID, userID: restriction.UserID}] = restriction
}

func (r *restrictionRepository) Get(_ context.Context, roomID string, userID uuid.UUID) (models.Restriction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := restrictionKey{roomID: roomID, userID: userID}

	restriction, ok := r.restrictions[key]
	if !ok {
		return models.Restriction{}, false
	}

	if !restriction.Active(r.now()) {
		delete(r.restrictions, key)
		return models.Restriction{}, false
	}

	return restriction, true
}

func (r *restrictionRepository) Lift(_ context.Context, roomID string, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.restrictions, restrictionKey{roomID: roomID, userID: userID})
}
