package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ContentPolicy decides whether a message body is blocked in a room.
// Replaceable; the default is a configured substring block-list.
type ContentPolicy interface {
	IsBlocked(roomID, message string) bool
}

// RateLimitPolicy implements slow mode: at most one message per user per
// interval in a room. The interval is resolved by the caller (room settings
// override the configured default).
type RateLimitPolicy interface {
	// IsLimited reports whether the user is still cooling down and, if so,
	// for how long.
	IsLimited(roomID string, userID uuid.UUID, interval time.Duration) (time.Duration, bool)

	// RecordPost marks an accepted message for cooldown tracking.
	RecordPost(roomID string, userID uuid.UUID)
}

type blocklistPolicy struct {
	words []string
}

// NewBlocklistPolicy builds a case-insensitive substring block-list.
func NewBlocklistPolicy(words []string) ContentPolicy {
	lowered := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}

	return &blocklistPolicy{words: lowered}
}

func (p *blocklistPolicy) IsBlocked(_ string, message string) bool {
	lowered := strings.ToLower(message)

	for _, w := range p.words {
		if strings.Contains(lowered, w) {
			return true
		}
	}

	return false
}

type slowModeKey struct {
	roomID string
	userID uuid.UUID
}

type slowModePolicy struct {
	lastPost map[slowModeKey]time.Time
	mu       sync.Mutex

	now func() time.Time
}

func NewSlowModePolicy() RateLimitPolicy {
	return &slowModePolicy{
		lastPost: make(map[slowModeKey]time.Time),
		now:      time.Now,
	}
}

func (p *slowModePolicy) IsLimited(roomID string, userID uuid.UUID, interval time.Duration) (time.Duration, bool) {
	if interval <= 0 {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := p.lastPost[slowModeKey{roomID: roomID, userID: userID}]
	if !ok {
		return 0, false
	}

	remaining := interval - p.now().Sub(last)
	if remaining <= 0 {
		return 0, false
	}

	return remaining, true
}

func (p *slowModePolicy) RecordPost(roomID string, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastPost[slowModeKey{roomID: roomID, userID: userID}] = p.now()
}
