package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/application/metric"
	"github.com/qrave1/ArenaChat/internal/domain/events"
	"github.com/qrave1/ArenaChat/internal/domain/models"
	"github.com/qrave1/ArenaChat/internal/infra/appctx"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
)

const (
	minPollOptions = 2
	maxPollOptions = 6
)

// PollUsecase runs the poll lifecycle. Poll definitions live in memory,
// votes in the durable store; tallies are always recomputed from the vote
// set. Expiry is decided by wall clock on every code path that evaluates a
// poll, a timer is never the source of truth.
type PollUsecase interface {
	Create(ctx context.Context, identity appctx.Identity, roomID, question string, options []string, durationSeconds int) (*models.Poll, error)
	Vote(ctx context.Context, identity appctx.Identity, pollID uuid.UUID, optionIndex int) (models.Tally, error)
	End(ctx context.Context, identity appctx.Identity, pollID uuid.UUID) (models.Tally, error)

	ActiveForRoom(ctx context.Context, roomID string) *models.Poll
}

type pollUsecase struct {
	rooms    RoomUsecase
	pollRepo memory.PollRepository
	voteRepo repository.VoteRepository

	// one lock per active poll: vote upserts, tally reads and the status
	// transition for a poll are serialized through it; the entry is dropped
	// once the poll ends
	locks   map[uuid.UUID]*sync.Mutex
	locksMu sync.Mutex

	now func() time.Time
}

func NewPollUsecase(rooms RoomUsecase, pollRepo memory.PollRepository, voteRepo repository.VoteRepository) PollUsecase {
	return &pollUsecase{
		rooms:    rooms,
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		locks:    make(map[uuid.UUID]*sync.Mutex),
		now:      time.Now,
	}
}

func (uc *pollUsecase) lockFor(pollID uuid.UUID) *sync.Mutex {
	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()

	lock, ok := uc.locks[pollID]
	if !ok {
		lock = &sync.Mutex{}
		uc.locks[pollID] = lock
	}

	return lock
}

func (uc *pollUsecase) releaseLock(pollID uuid.UUID) {
	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()

	delete(uc.locks, pollID)
}

func (uc *pollUsecase) Create(ctx context.Context, identity appctx.Identity, roomID, question string, options []string, durationSeconds int) (*models.Poll, error) {
	if !identity.Role.IsModeratorTier() {
		return nil, ErrDenied
	}

	trimmed := make([]string, 0, len(options))

	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt != "" {
			trimmed = append(trimmed, opt)
		}
	}

	if len(trimmed) < minPollOptions || len(trimmed) > maxPollOptions {
		return nil, reject(ReasonInvalidOptionCount, fmt.Sprintf("polls need %d to %d options", minPollOptions, maxPollOptions))
	}

	if durationSeconds <= 0 {
		return nil, reject(ReasonInvalidDuration, "poll duration must be positive")
	}

	poll := models.Poll{
		ID:        uuid.New(),
		RoomID:    roomID,
		CreatorID: identity.UserID,
		Question:  strings.TrimSpace(question),
		Options:   trimmed,
		Duration:  durationSeconds,
		CreatedAt: uc.now(),
		Status:    models.PollActive,
	}

	uc.pollRepo.Add(ctx, poll)
	metric.IncrementActivePolls()

	uc.rooms.Broadcast(roomID, events.NewPollCreatedEvent(poll))

	slog.Info(
		"poll created",
		slog.String(constant.PollID, poll.ID.String()),
		slog.String(constant.RoomID, roomID),
		slog.String(constant.UserID, identity.UserID.String()),
	)

	return &poll, nil
}

func (uc *pollUsecase) Vote(ctx context.Context, identity appctx.Identity, pollID uuid.UUID, optionIndex int) (models.Tally, error) {
	lock := uc.lockFor(pollID)
	lock.Lock()
	defer lock.Unlock()

	// snapshot read under the poll's lock, so the status seen here is the
	// status the vote is judged against
	poll, ok := uc.pollRepo.Get(ctx, pollID)
	if !ok {
		uc.releaseLock(pollID)
		return models.Tally{}, fmt.Errorf("poll %s: %w", pollID, repository.ErrNotFound)
	}

	if poll.Status == models.PollEnded {
		return models.Tally{}, reject(ReasonPollEnded, "poll has ended")
	}

	if poll.Expired(uc.now()) {
		// discovering expiry transitions the poll, then the vote is refused
		if err := uc.endPoll(ctx, poll); err != nil {
			return models.Tally{}, err
		}

		return models.Tally{}, reject(ReasonPollExpired, "poll has expired")
	}

	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return models.Tally{}, reject(ReasonInvalidOption, "option index out of range")
	}

	// insert-or-overwrite by (poll, user): re-voting replaces the prior
	// choice instead of adding a row
	err := uc.voteRepo.Upsert(ctx, models.Vote{
		PollID:      pollID,
		UserID:      identity.UserID,
		OptionIndex: optionIndex,
		VotedAt:     uc.now(),
	})
	if err != nil {
		return models.Tally{}, fmt.Errorf("record vote: %w", err)
	}

	tally, err := uc.tally(ctx, poll)
	if err != nil {
		return models.Tally{}, err
	}

	uc.rooms.Broadcast(poll.RoomID, events.NewPollUpdateEvent(tally))

	return tally, nil
}

func (uc *pollUsecase) End(ctx context.Context, identity appctx.Identity, pollID uuid.UUID) (models.Tally, error) {
	lock := uc.lockFor(pollID)
	lock.Lock()
	defer lock.Unlock()

	poll, ok := uc.pollRepo.Get(ctx, pollID)
	if !ok {
		uc.releaseLock(pollID)
		return models.Tally{}, fmt.Errorf("poll %s: %w", pollID, repository.ErrNotFound)
	}

	if !identity.Role.IsModeratorTier() && identity.UserID != poll.CreatorID {
		return models.Tally{}, ErrDenied
	}

	if poll.Status == models.PollEnded {
		// ending twice is a no-op success with the same final tally
		return uc.tally(ctx, poll)
	}

	if err := uc.endPoll(ctx, poll); err != nil {
		return models.Tally{}, err
	}

	return uc.tally(ctx, poll)
}

func (uc *pollUsecase) ActiveForRoom(ctx context.Context, roomID string) *models.Poll {
	var latest *models.Poll

	for _, candidate := range uc.pollRepo.ActiveInRoom(ctx, roomID) {
		lock := uc.lockFor(candidate.ID)
		lock.Lock()

		// re-read under the lock: the candidate list is a point-in-time scan
		poll, ok := uc.pollRepo.Get(ctx, candidate.ID)
		if ok && poll.Status == models.PollActive && poll.Expired(uc.now()) {
			if err := uc.endPoll(ctx, poll); err != nil {
				slog.Error(
					"end expired poll",
					slog.String(constant.PollID, poll.ID.String()),
					slog.Any(constant.Error, err),
				)
			}

			poll.Status = models.PollEnded
		}

		active := ok && poll.Status == models.PollActive
		lock.Unlock()

		if active && (latest == nil || poll.CreatedAt.After(latest.CreatedAt)) {
			snapshot := poll
			latest = &snapshot
		}
	}

	return latest
}

// endPoll transitions a poll to ended and broadcasts the final tally. Callers
// must hold the poll's lock; the repository flips the status at most once, so
// a second caller racing through a stale lock entry cannot re-announce.
func (uc *pollUsecase) endPoll(ctx context.Context, poll models.Poll) error {
	if !uc.pollRepo.MarkEnded(ctx, poll.ID) {
		return nil
	}

	poll.Status = models.PollEnded
	metric.DecrementActivePolls()

	tally, err := uc.tally(ctx, poll)
	if err != nil {
		return err
	}

	uc.rooms.Broadcast(poll.RoomID, events.NewPollEndedEvent(tally))

	// ended polls take no more votes; their lock entry is no longer needed
	uc.releaseLock(poll.ID)

	slog.Info(
		"poll ended",
		slog.String(constant.PollID, poll.ID.String()),
		slog.String(constant.RoomID, poll.RoomID),
	)

	return nil
}

func (uc *pollUsecase) tally(ctx context.Context, poll models.Poll) (models.Tally, error) {
	votes, err := uc.voteRepo.VotesForPoll(ctx, poll.ID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("load votes: %w", err)
	}

	return models.NewTally(poll.ID, len(poll.Options), votes), nil
}
