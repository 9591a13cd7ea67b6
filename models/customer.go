package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_tenant_phone,priority:1"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name      string `gorm:"not null"`
	Phone     string `gorm:"not null;uniqueIndex:idx_tenant_phone,priority:2"`
	Email     string
	VATNumber string
	Notes     string
	LastQuote *time.Time
	IsActive  bool `gorm:"default:true"`

	Quotes []Quote `gorm:"foreignKey:CustomerID"`

	gorm.Model
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
