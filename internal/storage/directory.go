package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"leap/internal/models"
	"leap/internal/queue"
)

// Directory reads the users and venues tables owned by the account and venue services.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// LookupUser resolves a user id into the caller identity used by the queue policy.
// found is false when no such user exists.
func (d *Directory) LookupUser(ctx context.Context, userID string) (caller queue.Caller, found bool, err error) {
	var user models.User
	err = d.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return queue.Caller{}, false, nil
	}
	if err != nil {
		return queue.Caller{}, false, fmt.Errorf("load user %s: %w", userID, err)
	}

	role := queue.Role(user.UserType)
	if !role.Valid() {
		role = queue.RoleUser
	}
	caller = queue.Caller{
		UserID:      user.ID,
		DisplayName: user.Username,
		Role:        role,
	}
	if role == queue.RoleEmployee && user.VenueID != nil {
		caller.VenueID = *user.VenueID
	}
	return caller, true, nil
}

// VenueExists reports whether venueID names a known venue.
func (d *Directory) VenueExists(ctx context.Context, venueID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Venue{}).Where("id = ?", venueID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check venue %s: %w", venueID, err)
	}
	return count > 0, nil
}
