package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TokenStatusActive   = "active"
	TokenStatusConsumed = "consumed"
	TokenStatusRevoked  = "revoked"
	TokenStatusExpired  = "expired"
)

const (
	ConsentMethodTokenLink = "token_link"
	ConsentMethodStaff     = "staff"
)

const (
	ConsentDecisionAccepted = "accepted"
	ConsentDecisionRejected = "rejected"
)

// ConsentToken is a single-use, time-limited credential letting an external
// party accept or reject one quote without authentication. Only the hash is
// indexed; the raw value is kept solely for the constant-time second check
// during lookup.
type ConsentToken struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID uuid.UUID `gorm:"type:uuid;index;not null"`
	QuoteID  uuid.UUID `gorm:"type:uuid;index;not null"`

	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`
	RawValue  string `gorm:"not null" json:"-"`

	Status    string    `gorm:"type:varchar(20);default:'active'"`
	ExpiresAt time.Time `gorm:"not null"`

	ConsumedAt *time.Time
	ConsentID  *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *ConsentToken) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// Consent is the immutable record of an accept/reject event. Rows are only
// ever inserted, never updated.
type Consent struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID uuid.UUID `gorm:"type:uuid;index;not null"`
	QuoteID  uuid.UUID `gorm:"type:uuid;index;not null"`

	Decision    string `gorm:"type:varchar(20);not null"` // accepted, rejected
	Method      string `gorm:"type:varchar(20);not null"` // token_link, staff
	RequesterIP string
	UserAgent   string
	EvidenceRef string

	RecordedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (c *Consent) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
