package entity

import (
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Instance is one provider session owned by a company: a WhatsApp bridge
// session or a linked social page/account. Status always holds a canonical
// connection state, never a raw provider string.
type Instance struct {
	ID                 uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Provider           string                `gorm:"not null"`
	ExternalInstanceID string                `gorm:"not null;index"`
	PlatformUserID     string                `gorm:"index"`
	Status             event.ConnectionState `gorm:"type:varchar(20);not null;default:'disconnected'"`
	Token              string                `gorm:"uniqueIndex"`
	WebhookSecret      string                `gorm:""`
	VerifyToken        string                `gorm:""`
	WebhookURL         string                `gorm:""`
	CreatedAt          time.Time             `gorm:"not null"`
	UpdatedAt          time.Time             `gorm:"not null"`
	DeletedAt          gorm.DeletedAt
}

func (Instance) TableName() string {
	return "instances"
}
