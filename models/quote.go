package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	QuoteStatusDraft     = "draft"
	QuoteStatusSent      = "sent"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusRejected  = "rejected"
	QuoteStatusExpired   = "expired"
	QuoteStatusCancelled = "cancelled"
)

type Quote struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_tenant_quote_number,priority:1"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index;not null"`

	QuoteNumber string    `gorm:"not null;uniqueIndex:idx_tenant_quote_number,priority:2"`
	CustomerID  uuid.UUID `gorm:"type:uuid;index;not null"`
	QuoteDate   time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	ValidUntil  *time.Time

	Status string `gorm:"type:varchar(20);default:'draft'"`

	// Totals in minor currency units; always re-derived from current items.
	SubtotalCents int64 `gorm:"not null;default:0"`
	TaxCents      int64 `gorm:"not null;default:0"`
	TotalCents    int64 `gorm:"not null;default:0"`

	Notes string

	Items []QuoteItem `gorm:"foreignKey:QuoteID"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return
}

// QuoteItem snapshots catalog pricing at creation time, so later catalog
// changes never alter historical quotes.
type QuoteItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	QuoteID       uuid.UUID `gorm:"type:uuid;index;not null"`
	CatalogItemID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name           string          `gorm:"not null"`
	Unit           string          `gorm:"type:varchar(20)"`
	Quantity       decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	UnitPriceCents int64           `gorm:"not null"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);not null"` // percent

	SubtotalCents int64 `gorm:"not null"`
	TaxCents      int64 `gorm:"not null"`
	TotalCents    int64 `gorm:"not null"`
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
