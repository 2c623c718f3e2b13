package entity

import (
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message is the local row for an outbound send (or an inbound message the
// gateway chose to persist). ProviderMessageID is filled once the provider
// worker reports the id it was assigned; acks correlate through it.
type Message struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	InstanceID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	Direction         event.Direction   `gorm:"type:varchar(10);not null"`
	Recipient         string            `gorm:"not null"`
	Type              event.MessageType `gorm:"type:varchar(20);not null"`
	Content           datatypes.JSON    `gorm:"type:jsonb;not null"`
	Priority          int               `gorm:"not null;default:0"`
	ProviderMessageID string            `gorm:"index"`
	AckStatus         string            `gorm:""`
	CreatedAt         time.Time         `gorm:"not null"`
	UpdatedAt         time.Time         `gorm:"not null"`
}

func (Message) TableName() string {
	return "messages"
}
