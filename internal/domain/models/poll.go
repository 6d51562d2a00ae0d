package models

import (
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollActive PollStatus = "active"
	PollEnded  PollStatus = "ended"
)

// Poll is a live poll attached to a room. Status moves active→ended exactly
// once. Expiry is authoritative by wall clock: any reader must treat a poll
// past CreatedAt+Duration as ended even if Status still says active.
type Poll struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    string     `json:"room_id"`
	CreatorID uuid.UUID  `json:"creator_id"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	Duration  int        `json:"duration_seconds"`
	CreatedAt time.Time  `json:"created_at"`
	Status    PollStatus `json:"status"`
}

// ExpiresAt is the wall-clock end of the voting window.
func (p *Poll) ExpiresAt() time.Time {
	return p.CreatedAt.Add(time.Duration(p.Duration) * time.Second)
}

// Expired reports whether the voting window has passed at the given instant.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt())
}

// Vote is one user's current choice in a poll. Exactly one row exists per
// (poll, user); re-voting overwrites it.
type Vote struct {
	PollID      uuid.UUID `json:"poll_id" db:"poll_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	OptionIndex int       `json:"option_index" db:"option_index"`
	VotedAt     time.Time `json:"voted_at" db:"voted_at"`
}

// Tally is a poll result computed from the vote set. It is always derived,
// never stored, so concurrent votes cannot drift a counter.
type Tally struct {
	PollID      uuid.UUID `json:"poll_id"`
	Counts      []int     `json:"per_option_counts"`
	Total       int       `json:"total_votes"`
	Percentages []float64 `json:"percentages"`
}

// NewTally folds votes into per-option counts for a poll with optionCount
// options. Votes with an out-of-range index are ignored.
func NewTally(pollID uuid.UUID, optionCount int, votes []Vote) Tally {
	t := Tally{
		PollID:      pollID,
		Counts:      make([]int, optionCount),
		Percentages: make([]float64, optionCount),
	}

	for _, v := range votes {
		if v.OptionIndex < 0 || v.OptionIndex >= optionCount {
			continue
		}

		t.Counts[v.OptionIndex]++
		t.Total++
	}

	if t.Total > 0 {
		for i, c := range t.Counts {
			t.Percentages[i] = float64(c) / float64(t.Total) * 100
		}
	}

	return t
}
