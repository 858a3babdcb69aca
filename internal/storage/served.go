package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"leap/internal/models"
)

// ServedLedger records validated members in the served_entries table.
type ServedLedger struct {
	db *gorm.DB
}

func NewServedLedger(db *gorm.DB) *ServedLedger {
	return &ServedLedger{db: db}
}

func (l *ServedLedger) MarkServed(ctx context.Context, venueID, userID string, at time.Time) error {
	entry := models.ServedEntry{VenueID: venueID, UserID: userID, ServedAt: at}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("record served member: %w", err)
	}
	return nil
}

func (l *ServedLedger) ServedSince(ctx context.Context, venueID, userID string, since time.Time) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.ServedEntry{}).
		Where("venue_id = ? AND user_id = ? AND served_at >= ?", venueID, userID, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check served member: %w", err)
	}
	return count > 0, nil
}

// PurgeBefore deletes entries older than before and returns how many were removed.
func (l *ServedLedger) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Where("served_at < ?", before).Delete(&models.ServedEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge served entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
