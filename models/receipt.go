package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReceiptStatusIssued  = "issued"
	ReceiptStatusRevoked = "revoked"
)

// Verification outcome classes. TOKEN_INVALID is the only one that points
// at a forged or mistyped code; the SECRET_* classes mean the system is not
// configured, which operators must be able to tell apart from an attack.
const (
	VerifyOutcomeValid                = "VALID"
	VerifyOutcomeNotFound             = "NOT_FOUND"
	VerifyOutcomeSecretMissing        = "SECRET_MISSING"
	VerifyOutcomeSecretVersionMissing = "SECRET_VERSION_MISSING"
	VerifyOutcomeRecordExpired        = "RECORD_EXPIRED"
	VerifyOutcomeTokenInvalid         = "TOKEN_INVALID"
)

// Receipt is a signed proof-of-transaction document bound to one quote.
// At most one exists per quote; re-issuance updates the row in place.
type Receipt struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_tenant_serial,priority:1"`
	QuoteID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ConsentID uuid.UUID `gorm:"type:uuid;not null"`

	Serial      string    `gorm:"not null;uniqueIndex:idx_tenant_serial,priority:2"`
	AmountCents int64     `gorm:"not null"`
	IssueDate   time.Time `gorm:"not null"`

	HashFull          string `gorm:"not null"`
	HashShort         string `gorm:"type:varchar(16);not null"`
	VerificationToken string `gorm:"not null" json:"-"`
	SecretVersion     string `gorm:"type:varchar(20);not null"`

	Status    string    `gorm:"type:varchar(20);default:'issued'"`
	ExpiresAt time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ReceiptVerification is an append-only audit log of verification attempts.
// ReceiptID is nil when the serial did not resolve to any receipt.
type ReceiptVerification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	ReceiptID *uuid.UUID `gorm:"type:uuid;index"`

	Serial        string `gorm:"not null"`
	Outcome       string `gorm:"type:varchar(30);not null"`
	FailureReason string
	RequesterIP   string

	CreatedAt time.Time
}

func (v *ReceiptVerification) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
