// Package queue holds the per-venue FIFO queue: its record, the operations that move it between
// open and closed, the authorization policy shared by every operation, and the events emitted
// after each successful change.
package queue

import "context"

// DefaultMaxLength is the capacity used when open is called without one.
const DefaultMaxLength = 250

// Role of an authenticated caller.
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// Caller is the resolved identity of whoever issued a request.
type Caller struct {
	UserID      string
	DisplayName string
	Role        Role
	// VenueID is the venue an employee is assigned to. Empty for users and admins.
	VenueID string
}

// Member is one waiting entry in a queue.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Queue is the single record kept per venue.
type Queue struct {
	VenueID   string   `json:"venueId"`
	IsOpen    bool     `json:"isOpen"`
	MaxLength int      `json:"maxLength"`
	Members   []Member `json:"members"`
}

// Len returns the number of waiting members.
func (q *Queue) Len() int {
	return len(q.Members)
}

// IndexOf returns the position of userID in Members, or -1.
func (q *Queue) IndexOf(userID string) int {
	for i, m := range q.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers never share the member slice with a store.
func (q *Queue) Clone() *Queue {
	if q == nil {
		return nil
	}
	out := *q
	out.Members = make([]Member, len(q.Members))
	copy(out.Members, q.Members)
	return &out
}

// remove drops the member at i and keeps the relative order of the rest.
func (q *Queue) remove(i int) {
	q.Members = append(q.Members[:i], q.Members[i+1:]...)
}

// Status is the read-only view returned by Service.Status.
type Status struct {
	VenueID   string   `json:"venueId"`
	IsOpen    bool     `json:"isOpen"`
	MaxLength int      `json:"maxLength"`
	Length    int      `json:"length"`
	Members   []Member `json:"members"`
}

// Store persists one Queue per venue.
//
// Mutate must run fn and the write that follows atomically with respect to other Mutate calls
// for the same venue. fn receives a fresh record with found=false when none exists yet; if fn
// returns an error nothing is written and that error is returned unchanged.
type Store interface {
	Get(ctx context.Context, venueID string) (*Queue, error)
	Put(ctx context.Context, q *Queue) error
	Mutate(ctx context.Context, venueID string, fn func(q *Queue, found bool) error) (*Queue, error)
}
