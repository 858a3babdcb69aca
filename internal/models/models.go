package models

import (
	"time"

	"leap/internal/queue"
)

// User is the identity record read by the role gate. Accounts are created by the account service.
type User struct {
	ID        string  `gorm:"primaryKey"`
	Username  string  `gorm:"not null"`
	Email     string  `gorm:"uniqueIndex;not null"`
	UserType  string  `gorm:"not null;default:user"` // user, employee or admin
	VenueID   *string `gorm:"index"`                 // venue an employee works at
	CreatedAt time.Time
}

// Venue is only read here to check that a queue belongs to a known venue.
type Venue struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedBy string `gorm:"index"`
	CreatedAt time.Time
}

// QueueRecord is the single queue row kept per venue.
type QueueRecord struct {
	VenueID   string         `gorm:"primaryKey"`
	IsOpen    bool           `gorm:"not null;default:false"`
	MaxLength int            `gorm:"not null;default:250"`
	Members   []queue.Member `gorm:"serializer:json;type:jsonb"` // order is queue order
	UpdatedAt time.Time
}

func (QueueRecord) TableName() string {
	return "queues"
}

// ToQueue converts the row into the domain record.
func (r *QueueRecord) ToQueue() *queue.Queue {
	members := make([]queue.Member, len(r.Members))
	copy(members, r.Members)
	return &queue.Queue{
		VenueID:   r.VenueID,
		IsOpen:    r.IsOpen,
		MaxLength: r.MaxLength,
		Members:   members,
	}
}

// NewQueueRecord converts a domain record into a row.
func NewQueueRecord(q *queue.Queue) QueueRecord {
	members := q.Members
	if members == nil {
		members = []queue.Member{}
	}
	return QueueRecord{
		VenueID:   q.VenueID,
		IsOpen:    q.IsOpen,
		MaxLength: q.MaxLength,
		Members:   members,
	}
}

// ServedEntry records a member validated at a venue. Rows older than the last daily reset are
// purged by the scheduler.
type ServedEntry struct {
	ID       uint      `gorm:"primaryKey"`
	VenueID  string    `gorm:"index:idx_served_venue_user;not null"`
	UserID   string    `gorm:"index:idx_served_venue_user;not null"`
	ServedAt time.Time `gorm:"index;not null"`
}
