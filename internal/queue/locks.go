package queue

import "sync"

// venueLocks hands out one mutex per venue. Entries are refcounted and dropped once unused.
type venueLocks struct {
	mu    sync.Mutex
	locks map[string]*venueLock
}

type venueLock struct {
	mu   sync.Mutex
	refs int
}

func newVenueLocks() *venueLocks {
	return &venueLocks{locks: make(map[string]*venueLock)}
}

// lock blocks until venueID is free and returns the matching unlock.
func (v *venueLocks) lock(venueID string) func() {
	v.mu.Lock()
	l, ok := v.locks[venueID]
	if !ok {
		l = &venueLock{}
		v.locks[venueID] = l
	}
	l.refs++
	v.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		v.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, venueID)
		}
		v.mu.Unlock()
	}
}

func (v *venueLocks) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.locks)
}
