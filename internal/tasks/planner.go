package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"leap/internal/queue"
)

// ServedPurger drops served-ledger rows older than a cutoff.
type ServedPurger interface {
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// PurgeServed removes ledger rows from before the last reset boundary. They can no longer block
// anyone from rejoining.
func PurgeServed(ctx context.Context, purger ServedPurger, clock queue.ResetClock, now time.Time, logger *log.Logger) {
	cutoff := clock.LastReset(now)
	n, err := purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to purge served members")
		return
	}
	logger.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("served members purged")
}

// InitScheduler starts the cron scheduler. The purge runs five minutes after the daily reset hour
// in the reset clock's zone.
func InitScheduler(purger ServedPurger, clock queue.ResetClock, logger *log.Logger) (*cron.Cron, error) {
	loc := clock.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	spec := fmt.Sprintf("0 5 %d * * *", clock.Hour)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		PurgeServed(ctx, purger, clock, time.Now(), logger)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule served purge %q: %w", spec, err)
	}

	c.Start()
	logger.Info().Str("spec", spec).Str("location", loc.String()).Msg("cron scheduler started")
	return c, nil
}
