package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookFailure keeps the body of a rejected webhook call so malformed
// provider payloads can be diagnosed after the 4xx was returned.
type WebhookFailure struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider  string         `gorm:"not null"`
	Reason    string         `gorm:"not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (WebhookFailure) TableName() string {
	return "webhook_failures"
}
