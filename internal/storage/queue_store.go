package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leap/internal/models"
	"leap/internal/queue"
)

// QueueStore keeps queue records in postgres.
//
// Mutate locks the venue's row with SELECT ... FOR UPDATE for the length of the transaction, so
// two instances handling joins for the same venue cannot both read the same length and both
// append past capacity.
type QueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) *QueueStore {
	return &QueueStore{db: db}
}

func (s *QueueStore) Get(ctx context.Context, venueID string) (*queue.Queue, error) {
	var rec models.QueueRecord
	err := s.db.WithContext(ctx).Where("venue_id = ?", venueID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load queue %s: %w", venueID, err)
	}
	return rec.ToQueue(), nil
}

func (s *QueueStore) Put(ctx context.Context, q *queue.Queue) error {
	rec := models.NewQueueRecord(q)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "venue_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save queue %s: %w", q.VenueID, err)
	}
	return nil
}

func (s *QueueStore) Mutate(ctx context.Context, venueID string, fn func(q *queue.Queue, found bool) error) (*queue.Queue, error) {
	var out *queue.Queue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.QueueRecord
		found := true
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("venue_id = ?", venueID).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			rec = models.QueueRecord{VenueID: venueID, MaxLength: queue.DefaultMaxLength}
		} else if err != nil {
			return fmt.Errorf("lock queue %s: %w", venueID, err)
		}

		q := rec.ToQueue()
		if err := fn(q, found); err != nil {
			return err
		}

		next := models.NewQueueRecord(q)
		next.VenueID = venueID
		if found {
			err = tx.Model(&models.QueueRecord{}).
				Where("venue_id = ?", venueID).
				Select("is_open", "max_length", "members", "updated_at").
				Updates(&next).Error
		} else {
			// Two instances may both see no row on the very first open; the loser turns into an update.
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "venue_id"}},
				UpdateAll: true,
			}).Create(&next).Error
		}
		if err != nil {
			return fmt.Errorf("write queue %s: %w", venueID, err)
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
