package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

// PollRepository holds poll definitions. Polls are process-local: the system
// is a single broadcasting authority, only votes are durable. Reads return
// snapshots; the stored poll is never shared, so callers can hand their copy
// to event payloads and marshal it without synchronizing with transitions.
type PollRepository interface {
	Add(ctx context.Context, poll models.Poll)
	Get(ctx context.Context, pollID uuid.UUID) (models.Poll, bool)

	// ActiveInRoom returns polls whose recorded status is still active.
	// Callers must still check wall-clock expiry.
	ActiveInRoom(ctx context.Context, roomID string) []models.Poll

	// MarkEnded flips a poll from active to ended and reports whether this
	// call performed the transition. The flip happens at most once per poll.
	MarkEnded(ctx context.Context, pollID uuid.UUID) bool
}

type pollRepository struct {
	polls map[uuid.UUID]models.Poll
	mu    sync.RWMutex
}

func NewPollRepository() PollRepository {
	return &pollRepository{
		polls: make(map[uuid.UUID]models.Poll),
	}
}

func (r *pollRepository) Add(_ context.Context, poll models.Poll) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls[poll.ID] = poll
}

func (r *pollRepository) Get(_ context.Context, pollID uuid.UUID) (models.Poll, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	poll, ok := r.polls[pollID]

	return poll, ok
}

func (r *pollRepository) ActiveInRoom(_ context.Context, roomID string) []models.Poll {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var polls []models.Poll

	for _, poll := range r.polls {
		if poll.RoomID == roomID && poll.Status == models.PollActive {
			polls = append(polls, poll)
		}
	}

	return polls
}

func (r *pollRepository) MarkEnded(_ context.Context, pollID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	poll, ok := r.polls[pollID]
	if !ok || poll.Status != models.PollActive {
		return false
	}

	poll.Status = models.PollEnded
	r.polls[pollID] = poll

	return true
}
