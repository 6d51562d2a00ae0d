package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

// voteRepository is the in-memory VoteRepository. One row per
// (poll, user); Upsert overwrites, mirroring the Postgres ON CONFLICT.
type voteRepository struct {
	votes map[uuid.UUID]map[uuid.UUID]models.Vote
	mu    sync.Mutex
}

func NewVoteRepository() repository.VoteRepository {
	return &voteRepository{
		votes: make(map[uuid.UUID]map[uuid.UUID]models.Vote),
	}
}

func (r *voteRepository) Upsert(_ context.Context, vote models.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.votes[vote.PollID]; !ok {
		r.votes[vote.PollID] = make(map[uuid.UUID]models.Vote)
	}

	if vote.VotedAt.IsZero() {
		vote.VotedAt = time.Now().UTC()
	}

	r.votes[vote.PollID][vote.UserID] = vote

	return nil
}

func (r *voteRepository) VotesForPoll(_ context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var votes []models.Vote

	for _, vote := range r.votes[pollID] {
		votes = append(votes, vote)
	}

	return votes, nil
}
