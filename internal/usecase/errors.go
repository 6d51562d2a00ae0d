package usecase

import (
	"errors"
	"fmt"
	"time"
)

// RejectReason is the policy outcome reported back to the originating
// caller. Rejections are never broadcast to the room.
type RejectReason string

const (
	ReasonEmptyMessage       RejectReason = "emptyMessage"
	ReasonBlockedContent     RejectReason = "blockedContent"
	ReasonSlowMode           RejectReason = "slowMode"
	ReasonTimedOut           RejectReason = "timedOut"
	ReasonBanned             RejectReason = "banned"
	ReasonPollEnded          RejectReason = "pollEnded"
	ReasonPollExpired        RejectReason = "pollExpired"
	ReasonInvalidOption      RejectReason = "invalidOption"
	ReasonInvalidOptionCount RejectReason = "invalidOptionCount"
	ReasonInvalidDuration    RejectReason = "invalidDuration"
)

// ErrDenied marks an authorization failure. Denials are silent: no
// broadcast, no detail beyond this error.
var ErrDenied = errors.New("denied")

// RejectedError is a policy rejection. Room and poll state are unaffected.
type RejectedError struct {
	Reason     RejectReason
	Message    string
	RetryAfter time.Duration
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.Reason, e.Message)
}

func reject(reason RejectReason, message string) *RejectedError {
	return &RejectedError{Reason: reason, Message: message}
}

// AsRejected extracts a RejectedError from an error chain.
func AsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	ok := errors.As(err, &rejected)

	return rejected, ok
}
