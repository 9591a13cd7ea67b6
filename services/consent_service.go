// services/consent_service.go
package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"time"

	"quotepro-backend/models"
	"quotepro-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound  = errors.New("consent token not found")
	ErrTokenExpired   = errors.New("consent token expired")
	ErrTokenNotActive = errors.New("consent token is no longer active")
	ErrQuoteClosed    = errors.New("quote no longer accepts a consent decision")
)

// ConsentAction is the closed set of decisions an external party can take on
// a quote. Controllers map routes onto these values; nothing dispatches on
// raw strings.
type ConsentAction int

const (
	ActionAccept ConsentAction = iota
	ActionReject
)

// ConsentMeta captures the context of the accept/reject event for the
// immutable consent record.
type ConsentMeta struct {
	RequesterIP string
	UserAgent   string
	EvidenceRef string
}

type ConsentService struct {
	db *gorm.DB
}

func NewConsentService(db *gorm.DB) *ConsentService {
	return &ConsentService{db: db}
}

func tokenTTL() time.Duration {
	hours := 14 * 24 // default: two weeks
	if env := os.Getenv("CONSENT_TOKEN_TTL_HOURS"); env != "" {
		if h, err := strconv.Atoi(env); err == nil && h > 0 {
			hours = h
		}
	}
	return time.Duration(hours) * time.Hour
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueToken creates a fresh single-use token for the quote and returns it
// with the raw value populated. The raw value is handed out exactly once;
// afterwards only the hash is used for lookups.
func (s *ConsentService) IssueToken(tenantID, quoteID uuid.UUID) (*models.ConsentToken, error) {
	var quote models.Quote
	if err := s.db.Where("tenant_id = ? AND id = ?", tenantID, quoteID).First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	if quote.Status != models.QuoteStatusDraft && quote.Status != models.QuoteStatusSent {
		return nil, ErrQuoteClosed
	}

	raw := utils.GenerateSecureToken(32)
	token := models.ConsentToken{
		ID:        uuid.New(),
		TenantID:  tenantID,
		QuoteID:   quote.ID,
		TokenHash: hashToken(raw),
		RawValue:  raw,
		Status:    models.TokenStatusActive,
		ExpiresAt: time.Now().Add(tokenTTL()),
	}
	if err := s.db.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// GetOrCreateToken returns an existing active, unexpired token for the quote
// or issues a new one. This is lookup-then-issue without a database-level
// partial-unique constraint: two concurrent callers can both observe no
// active token and both issue one, leaving two live tokens for the quote.
// Known and accepted; a reject or staff revoke clears all of them.
func (s *ConsentService) GetOrCreateToken(tenantID, quoteID uuid.UUID) (*models.ConsentToken, error) {
	var token models.ConsentToken
	err := s.db.Where("tenant_id = ? AND quote_id = ? AND status = ? AND expires_at > ?",
		tenantID, quoteID, models.TokenStatusActive, time.Now()).
		Order("created_at DESC").
		First(&token).Error
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.IssueToken(tenantID, quoteID)
}

// LookupToken resolves a raw token value. The hash locates the candidate
// row, then the stored raw value must also pass a constant-time comparison
// before the token counts as resolved.
//
// Expiry is evaluated lazily here: the first lookup that observes an
// overdue active token persists the expired status, so the transition is
// auditable rather than forever implied.
func (s *ConsentService) LookupToken(raw string) (*models.ConsentToken, error) {
	return s.lookupToken(s.db, raw)
}

func (s *ConsentService) lookupToken(tx *gorm.DB, raw string) (*models.ConsentToken, error) {
	var token models.ConsentToken
	if err := tx.Where("token_hash = ?", hashToken(raw)).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(raw), []byte(token.RawValue)) != 1 {
		return nil, ErrTokenNotFound
	}

	if token.Status == models.TokenStatusActive && time.Now().After(token.ExpiresAt) {
		if err := tx.Model(&models.ConsentToken{}).Where("id = ?", token.ID).
			Update("status", models.TokenStatusExpired).Error; err != nil {
			return nil, err
		}
		token.Status = models.TokenStatusExpired
	}
	if token.Status == models.TokenStatusExpired {
		return &token, ErrTokenExpired
	}

	return &token, nil
}

// Apply performs the accept or reject decision carried by a raw token.
//
// Accept consumes the token atomically with writing the consent record and
// flips the quote to accepted. Reject records the decision, revokes every
// active token on the quote (defensive, in case more than one exists) and
// flips the quote to rejected. Both paths run in one transaction.
func (s *ConsentService) Apply(action ConsentAction, raw string, meta ConsentMeta) (*models.Consent, error) {
	var consent models.Consent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		token, err := s.lookupToken(tx, raw)
		if err != nil {
			return err
		}
		if token.Status != models.TokenStatusActive {
			return ErrTokenNotActive
		}

		var quote models.Quote
		if err := tx.First(&quote, "id = ?", token.QuoteID).Error; err != nil {
			return err
		}

		now := time.Now()

		switch action {
		case ActionAccept:
			consent = models.Consent{
				ID:          uuid.New(),
				TenantID:    token.TenantID,
				QuoteID:     token.QuoteID,
				Decision:    models.ConsentDecisionAccepted,
				Method:      models.ConsentMethodTokenLink,
				RequesterIP: meta.RequesterIP,
				UserAgent:   meta.UserAgent,
				EvidenceRef: meta.EvidenceRef,
				RecordedAt:  now,
			}
			if err := tx.Create(&consent).Error; err != nil {
				return err
			}

			// Consume exactly this token; guard on status so a raced
			// second consumer fails instead of double-writing.
			result := tx.Model(&models.ConsentToken{}).
				Where("id = ? AND status = ?", token.ID, models.TokenStatusActive).
				Updates(map[string]interface{}{
					"status":      models.TokenStatusConsumed,
					"consumed_at": now,
					"consent_id":  consent.ID,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrTokenNotActive
			}

			if quote.Status != models.QuoteStatusAccepted {
				if err := tx.Model(&models.Quote{}).Where("id = ?", quote.ID).
					Update("status", models.QuoteStatusAccepted).Error; err != nil {
					return err
				}
			}

		case ActionReject:
			consent = models.Consent{
				ID:          uuid.New(),
				TenantID:    token.TenantID,
				QuoteID:     token.QuoteID,
				Decision:    models.ConsentDecisionRejected,
				Method:      models.ConsentMethodTokenLink,
				RequesterIP: meta.RequesterIP,
				UserAgent:   meta.UserAgent,
				EvidenceRef: meta.EvidenceRef,
				RecordedAt:  now,
			}
			if err := tx.Create(&consent).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.ConsentToken{}).
				Where("quote_id = ? AND status = ?", token.QuoteID, models.TokenStatusActive).
				Update("status", models.TokenStatusRevoked).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Quote{}).Where("id = ?", quote.ID).
				Update("status", models.QuoteStatusRejected).Error; err != nil {
				return err
			}

		default:
			return errors.New("unknown consent action")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &consent, nil
}

// StaffReject records a rejection on behalf of staff: all active tokens for
// the quote are revoked and the quote moves to rejected, with a consent row
// marking the staff method.
func (s *ConsentService) StaffReject(tenantID, quoteID uuid.UUID, meta ConsentMeta) (*models.Consent, error) {
	var consent models.Consent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var quote models.Quote
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, quoteID).First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuoteNotFound
			}
			return err
		}

		consent = models.Consent{
			ID:          uuid.New(),
			TenantID:    tenantID,
			QuoteID:     quoteID,
			Decision:    models.ConsentDecisionRejected,
			Method:      models.ConsentMethodStaff,
			RequesterIP: meta.RequesterIP,
			UserAgent:   meta.UserAgent,
			EvidenceRef: meta.EvidenceRef,
			RecordedAt:  time.Now(),
		}
		if err := tx.Create(&consent).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ConsentToken{}).
			Where("quote_id = ? AND status = ?", quoteID, models.TokenStatusActive).
			Update("status", models.TokenStatusRevoked).Error; err != nil {
			return err
		}

		return tx.Model(&models.Quote{}).Where("id = ?", quoteID).
			Update("status", models.QuoteStatusRejected).Error
	})
	if err != nil {
		return nil, err
	}
	return &consent, nil
}
