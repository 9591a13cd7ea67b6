package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID uuid.UUID  `gorm:"type:uuid;index;not null"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
	Name     string     `gorm:"not null"`
	IsActive bool       `gorm:"default:true"`

	gorm.Model
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

type CatalogItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID  `gorm:"type:uuid;index;not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`

	Name        string `gorm:"not null"`
	Description string
	// Price in minor currency units (cents)
	UnitPriceCents int64           `gorm:"not null"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);default:0"` // percent
	Unit           string          `gorm:"type:varchar(20);default:'pcs'"`
	IsActive       bool            `gorm:"default:true"`

	QuoteItems []QuoteItem `gorm:"foreignKey:CatalogItemID"`

	gorm.Model
}

func (i *CatalogItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
