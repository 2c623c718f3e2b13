package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxCompleted  OutboxStatus = "completed"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxRecord is a durable delivery intent created in the same transaction
// as the business write it accompanies. Status mutation belongs to the
// dispatcher; producers only ever insert.
type OutboxRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Destination  string         `gorm:"not null"`
	RoutingKey   string         `gorm:"not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	Status       OutboxStatus   `gorm:"type:varchar(20);not null;default:'pending'"`
	Attempts     int            `gorm:"not null;default:0"`
	MaxAttempts  int            `gorm:"not null;default:3"`
	NextRetryAt  *time.Time     `gorm:""`
	ErrorMessage string         `gorm:""`
	CreatedAt    time.Time      `gorm:"not null"`
	ClaimedAt    *time.Time     `gorm:""`
	ProcessedAt  *time.Time     `gorm:""`
}

func (OutboxRecord) TableName() string {
	return "outbox_records"
}

// Terminal reports whether the record will never be retried again: either it
// was delivered, or it failed with no retry scheduled.
func (r OutboxRecord) Terminal() bool {
	if r.Status == OutboxCompleted {
		return true
	}
	return r.Status == OutboxFailed && r.NextRetryAt == nil
}
