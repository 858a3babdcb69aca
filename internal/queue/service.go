package queue

import (
	"context"
	"time"

	"github.com/phuslu/log"
)

// Service runs queue operations. Operations on one venue are serialized; different venues run in
// parallel. Every successful change is emitted on the Broadcaster while the venue is still locked,
// so subscribers see a venue's events in the order the changes were made.
type Service struct {
	store       Store
	broadcaster Broadcaster
	logger      *log.Logger
	locks       *venueLocks

	served     ServedLedger
	reset      ResetClock
	defaultMax int
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithServedLedger turns on the rejoin cooldown: members served through ValidateNext cannot join
// the same venue again until the next reset boundary of clock.
func WithServedLedger(ledger ServedLedger, clock ResetClock) Option {
	return func(s *Service) {
		s.served = ledger
		s.reset = clock
	}
}

// WithDefaultMaxLength sets the capacity used when Open receives none.
func WithDefaultMaxLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultMax = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires a Service. A nil broadcaster drops events.
func NewService(store Store, broadcaster Broadcaster, logger *log.Logger, opts ...Option) *Service {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	s := &Service{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		locks:       newVenueLocks(),
		defaultMax:  DefaultMaxLength,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// apply runs fn through the store under the venue lock and calls onCommit with the written record
// before releasing it.
func (s *Service) apply(ctx context.Context, venueID string, fn func(q *Queue, found bool) error, onCommit func(q *Queue)) (*Queue, error) {
	unlock := s.locks.lock(venueID)
	defer unlock()

	q, err := s.store.Mutate(ctx, venueID, fn)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if onCommit != nil {
		onCommit(q)
	}
	return q, nil
}

func (s *Service) emitStatus(q *Queue) {
	s.broadcaster.Emit(statusEvent(q))
}

func (s *Service) emitUpdated(q *Queue) {
	s.broadcaster.Emit(updatedEvent(q))
}

// Open creates the venue's queue or resets it in place: open, empty, with the given capacity.
// Re-opening an open queue drops everyone in it. maxLength <= 0 selects the default.
func (s *Service) Open(ctx context.Context, caller Caller, venueID string, maxLength int) (int, error) {
	if err := Authorize(OpOpen, caller, venueID); err != nil {
		return 0, err
	}
	if maxLength <= 0 {
		maxLength = s.defaultMax
	}

	q, err := s.apply(ctx, venueID, func(q *Queue, _ bool) error {
		q.IsOpen = true
		q.MaxLength = maxLength
		q.Members = []Member{}
		return nil
	}, s.emitStatus)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Str("venue_id", venueID).Str("by", caller.UserID).Int("max_length", maxLength).Msg("queue opened")
	return q.Len(), nil
}

// Close marks the queue closed. Members stay where they are until the next Open.
func (s *Service) Close(ctx context.Context, caller Caller, venueID string) error {
	_, err := s.apply(ctx, venueID, func(q *Queue, found bool) error {
		if !found {
			return ErrNotFound
		}
		if err := Authorize(OpClose, caller, venueID); err != nil {
			return err
		}
		q.IsOpen = false
		return nil
	}, s.emitStatus)
	if err != nil {
		return err
	}

	s.logger.Info().Str("venue_id", venueID).Str("by", caller.UserID).Msg("queue closed")
	return nil
}

// Status returns the queue contents. Plain users only see open queues.
func (s *Service) Status(ctx context.Context, caller Caller, venueID string) (*Status, error) {
	q, err := s.store.Get(ctx, venueID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if err := Authorize(OpStatus, caller, venueID); err != nil {
		return nil, err
	}
	if caller.Role == RoleUser && !q.IsOpen {
		return nil, ErrClosed
	}

	members := q.Members
	if members == nil {
		members = []Member{}
	}
	return &Status{
		VenueID:   q.VenueID,
		IsOpen:    q.IsOpen,
		MaxLength: q.MaxLength,
		Length:    len(members),
		Members:   members,
	}, nil
}

// Join appends userID to the back of the queue and returns the new length.
func (s *Service) Join(ctx context.Context, venueID, userID, displayName string) (int, error) {
	q, err := s.apply(ctx, venueID, func(q *Queue, found bool) error {
		if !found || !q.IsOpen {
			return ErrNotOpen
		}
		if q.IndexOf(userID) >= 0 {
			return ErrAlreadyJoined
		}
		if s.served != nil {
			served, err := s.served.ServedSince(ctx, venueID, userID, s.reset.LastReset(s.now()))
			if err != nil {
				return storeUnavailable(err)
			}
			if served {
				return ErrRecentlyServed
			}
		}
		if q.Len() >= q.MaxLength {
			return ErrFull
		}
		q.Members = append(q.Members, Member{UserID: userID, DisplayName: displayName})
		return nil
	}, s.emitUpdated)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Str("venue_id", venueID).Str("user_id", userID).Int("length", q.Len()).Msg("member joined")
	return q.Len(), nil
}

// Leave removes userID from the queue and returns the new length.
func (s *Service) Leave(ctx context.Context, venueID, userID string) (int, error) {
	q, err := s.apply(ctx, venueID, func(q *Queue, found bool) error {
		if !found || !q.IsOpen {
			return ErrNotOpen
		}
		i := q.IndexOf(userID)
		if i < 0 {
			return ErrNotInQueue
		}
		q.remove(i)
		return nil
	}, s.emitUpdated)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Str("venue_id", venueID).Str("user_id", userID).Int("length", q.Len()).Msg("member left")
	return q.Len(), nil
}

// RemoveMember lets staff take targetUserID out of the queue. Removing someone who is not there
// succeeds without changing anything.
func (s *Service) RemoveMember(ctx context.Context, caller Caller, venueID, targetUserID string) (int, error) {
	if err := Authorize(OpRemove, caller, venueID); err != nil {
		return 0, err
	}

	removed := false
	q, err := s.apply(ctx, venueID, func(q *Queue, found bool) error {
		if !found {
			return ErrNotFound
		}
		if !q.IsOpen {
			return ErrNotOpen
		}
		if i := q.IndexOf(targetUserID); i >= 0 {
			q.remove(i)
			removed = true
		}
		return nil
	}, s.emitUpdated)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Str("venue_id", venueID).Str("by", caller.UserID).Str("user_id", targetUserID).Bool("removed", removed).Msg("member removed")
	return q.Len(), nil
}

// ValidateNext serves the member at the front of the queue, provided claimedUserID is that member.
func (s *Service) ValidateNext(ctx context.Context, caller Caller, venueID, claimedUserID string) error {
	if err := Authorize(OpValidate, caller, venueID); err != nil {
		return err
	}

	_, err := s.apply(ctx, venueID, func(q *Queue, found bool) error {
		if !found {
			return ErrNotFound
		}
		if !q.IsOpen {
			return ErrNotOpen
		}
		if claimedUserID == "" || q.Len() == 0 || q.Members[0].UserID != claimedUserID {
			return ErrInvalidTurn
		}
		q.remove(0)
		return nil
	}, func(q *Queue) {
		s.markServed(ctx, venueID, claimedUserID)
		s.emitUpdated(q)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("venue_id", venueID).Str("by", caller.UserID).Str("user_id", claimedUserID).Msg("member validated")
	return nil
}

func (s *Service) markServed(ctx context.Context, venueID, userID string) {
	if s.served == nil {
		return
	}
	if err := s.served.MarkServed(ctx, venueID, userID, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("venue_id", venueID).Str("user_id", userID).Msg("failed to record served member")
	}
}

// Position returns the 1-based place of userID in an open queue and the queue length.
func (s *Service) Position(ctx context.Context, venueID, userID string) (int, int, error) {
	q, err := s.store.Get(ctx, venueID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return 0, 0, ErrNotOpen
		}
		return 0, 0, storeUnavailable(err)
	}
	if !q.IsOpen {
		return 0, 0, ErrNotOpen
	}
	i := q.IndexOf(userID)
	if i < 0 {
		return 0, 0, ErrNotInQueue
	}
	return i + 1, q.Len(), nil
}
