package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

type voteRepo struct {
	db *sqlx.DB
}

func NewVoteRepo(db *sqlx.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) Upsert(ctx context.Context, vote models.Vote) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO poll_votes (poll_id, user_id, option_index, voted_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (poll_id, user_id)
		 DO UPDATE SET option_index = EXCLUDED.option_index, voted_at = now()`,
		vote.PollID,
		vote.UserID,
		vote.OptionIndex,
	)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}

	return nil
}

func (r *voteRepo) VotesForPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	var votes []models.Vote

	err := r.db.SelectContext(
		ctx,
		&votes,
		"SELECT * FROM poll_votes WHERE poll_id = $1",
		pollID,
	)
	if err != nil {
		return nil, fmt.Errorf("select votes: %w", err)
	}

	return votes, nil
}
