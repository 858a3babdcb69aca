package storage

import (
	"context"
	"sync"
	"time"

	"leap/internal/queue"
)

// MemoryQueueStore keeps queue records in process. Used with DB_DRIVER=memory and in tests.
type MemoryQueueStore struct {
	mu     sync.Mutex
	queues map[string]*queue.Queue
}

func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{queues: make(map[string]*queue.Queue)}
}

func (s *MemoryQueueStore) Get(_ context.Context, venueID string) (*queue.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[venueID]
	if !ok {
		return nil, queue.ErrNotFound
	}
	return q.Clone(), nil
}

func (s *MemoryQueueStore) Put(_ context.Context, q *queue.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[q.VenueID] = q.Clone()
	return nil
}

func (s *MemoryQueueStore) Mutate(ctx context.Context, venueID string, fn func(q *queue.Queue, found bool) error) (*queue.Queue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.queues[venueID]
	var q *queue.Queue
	if found {
		q = current.Clone()
	} else {
		q = &queue.Queue{VenueID: venueID, MaxLength: queue.DefaultMaxLength, Members: []queue.Member{}}
	}
	if err := fn(q, found); err != nil {
		return nil, err
	}
	q.VenueID = venueID
	s.queues[venueID] = q.Clone()
	return q, nil
}

// MemoryServedLedger is the in-process ServedLedger.
type MemoryServedLedger struct {
	mu     sync.Mutex
	served map[servedKey]time.Time
}

type servedKey struct {
	venueID string
	userID  string
}

func NewMemoryServedLedger() *MemoryServedLedger {
	return &MemoryServedLedger{served: make(map[servedKey]time.Time)}
}

func (l *MemoryServedLedger) MarkServed(_ context.Context, venueID, userID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.served[servedKey{venueID, userID}] = at
	return nil
}

func (l *MemoryServedLedger) ServedSince(_ context.Context, venueID, userID string, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.served[servedKey{venueID, userID}]
	return ok && !at.Before(since), nil
}

func (l *MemoryServedLedger) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k, at := range l.served {
		if at.Before(before) {
			delete(l.served, k)
			n++
		}
	}
	return n, nil
}
