package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a tenant. Admin CRUD lives outside this service; the gateway
// only reads companies to scope routing keys and webhook secrets.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	DeletedAt gorm.DeletedAt
}

func (Company) TableName() string {
	return "companies"
}
