package queue

import (
	"errors"
	"fmt"
)

// Kind classifies a queue error.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalidState     Kind = "invalid_state"
	KindAlreadyJoined    Kind = "already_joined"
	KindNotInQueue       Kind = "not_in_queue"
	KindFull             Kind = "full"
	KindInvalidTurn      Kind = "invalid_turn"
	KindRecentlyServed   Kind = "recently_served"
	KindStoreUnavailable Kind = "store_unavailable"
)

// Error is returned by every Service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrFull) works on wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable is true only for store failures; every other kind means the action itself was invalid.
func (e *Error) Retryable() bool {
	return e.Kind == KindStoreUnavailable
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "queue not found"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "not allowed to access this queue"}
	ErrClosed           = &Error{Kind: KindForbidden, Message: "queue is closed"}
	ErrNotOpen          = &Error{Kind: KindInvalidState, Message: "queue not open"}
	ErrAlreadyJoined    = &Error{Kind: KindAlreadyJoined, Message: "user already in queue"}
	ErrNotInQueue       = &Error{Kind: KindNotInQueue, Message: "user not in queue"}
	ErrFull             = &Error{Kind: KindFull, Message: "queue is full"}
	ErrInvalidTurn      = &Error{Kind: KindInvalidTurn, Message: "not first in line or invalid token"}
	ErrRecentlyServed   = &Error{Kind: KindRecentlyServed, Message: "already served, cannot rejoin until the daily reset"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Message: "queue store unavailable"}
)

// KindOf returns the kind of a queue error, or "" for anything else.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Retryable()
}

// storeUnavailable keeps queue errors as they are and wraps everything else.
func storeUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	return &Error{Kind: KindStoreUnavailable, Message: ErrStoreUnavailable.Message, Err: err}
}
