package queue

import (
	"context"
	"time"
)

// ServedLedger remembers who was served at which venue, so a served member cannot jump back in
// line before the daily reset.
type ServedLedger interface {
	MarkServed(ctx context.Context, venueID, userID string, at time.Time) error
	ServedSince(ctx context.Context, venueID, userID string, since time.Time) (bool, error)
}

// ResetClock computes the daily boundary at which served members may rejoin.
type ResetClock struct {
	Hour     int
	Location *time.Location
}

// LastReset returns the most recent reset boundary at or before now.
func (r ResetClock) LastReset(now time.Time) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	boundary := time.Date(local.Year(), local.Month(), local.Day(), r.Hour, 0, 0, 0, loc)
	if boundary.After(local) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

// NextReset returns the first reset boundary strictly after now.
func (r ResetClock) NextReset(now time.Time) time.Time {
	return r.LastReset(now).AddDate(0, 0, 1)
}
