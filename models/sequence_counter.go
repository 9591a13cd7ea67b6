package models

import (
	"time"

	"github.com/google/uuid"
)

// SequenceCounter is the per-(tenant, year) monotonic source of document
// numbers. Rows are created lazily on first use and current_number only
// ever increases.
type SequenceCounter struct {
	TenantID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Year          int       `gorm:"primaryKey"`
	Prefix        string    `gorm:"type:varchar(10);not null"`
	CurrentNumber int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SequenceCounter) TableName() string { return "sequence_counters" }
