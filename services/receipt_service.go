// services/receipt_service.go
package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"quotepro-backend/models"
	"quotepro-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReceiptNotFound  = errors.New("receipt not found")
	ErrQuoteNotAccepted = errors.New("quote has not been accepted")
	ErrConsentMismatch  = errors.New("consent does not belong to this quote")
	ErrConsentNotFound  = errors.New("consent not found")
	ErrNoSigningSecret  = errors.New("no signing secret configured")
)

const receiptSerialPrefix = "RCT"

// VerificationResult is the outcome of a third-party verification request.
// Failures are expected results, not errors; they carry one of the
// VerifyOutcome* classes.
type VerificationResult struct {
	Valid         bool            `json:"valid"`
	Outcome       string          `json:"outcome"`
	FailureReason string          `json:"failureReason,omitempty"`
	Receipt       *models.Receipt `json:"receipt,omitempty"`
}

type ReceiptService struct {
	db *gorm.DB
}

func NewReceiptService(db *gorm.DB) *ReceiptService {
	return &ReceiptService{db: db}
}

// deriveSerial maps the quote number onto a stable receipt serial by
// swapping the document prefix: Q-2025-000001 -> RCT-2025-000001. Receipts
// are 1:1 with quotes, so uniqueness per tenant follows from the quote
// number and re-issuance keeps the serial unchanged.
func deriveSerial(quoteNumber string) string {
	parts := strings.SplitN(quoteNumber, "-", 2)
	if len(parts) != 2 {
		return receiptSerialPrefix + "-" + quoteNumber
	}
	return receiptSerialPrefix + "-" + parts[1]
}

// signToken computes the HMAC verification token over the receipt's
// identity triple. The secret never leaves the server; third parties only
// ever see the resulting token.
func signToken(secret, serial string, amountCents int64, issueDate time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(serial))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(amountCents, 10)))
	mac.Write([]byte("|"))
	mac.Write([]byte(issueDate.Format("2006-01-02")))
	return hex.EncodeToString(mac.Sum(nil))
}

// receiptSnapshot is the structured content the tamper-evidence hash covers.
// Deliberately distinct from the HMAC token: the hash gives a human a short
// code to compare against a printed document, the token proves server-side
// authenticity.
type receiptSnapshot struct {
	Serial      string       `json:"serial"`
	QuoteID     uuid.UUID    `json:"quote_id"`
	AmountCents int64        `json:"amount_cents"`
	IssueDate   string       `json:"issue_date"`
	Customer    string       `json:"customer"`
	Items       []itemDigest `json:"items"`
	ConsentID   uuid.UUID    `json:"consent_id"`
}

type itemDigest struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
}

// maskCustomerName keeps the initial of each word so the printed document
// stays recognizable without exposing the full identity in the digest.
func maskCustomerName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) > 1 {
			words[i] = string(runes[0]) + strings.Repeat("*", len(runes)-1)
		}
	}
	return strings.Join(words, " ")
}

func contentHash(snap receiptSnapshot) (full string, short string, err error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(payload)
	full = hex.EncodeToString(sum[:])
	// 5 bytes -> 8 unpadded base32 chars, easy to read off a printout
	short = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:5])
	return full, short, nil
}

// IssueReceipt produces the signed receipt for an accepted quote. A quote
// that already has a receipt gets all derived fields replaced in place (new
// hash, new token under the currently active secret version, new expiry);
// the unique constraint on quote_id rules out a second row.
func (s *ReceiptService) IssueReceipt(tenantID, quoteID, consentID uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTenantNotFound
			}
			return err
		}

		var quote models.Quote
		if err := tx.Preload("Items").
			Where("tenant_id = ? AND id = ?", tenantID, quoteID).
			First(&quote).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuoteNotFound
			}
			return err
		}
		if quote.Status != models.QuoteStatusAccepted {
			return ErrQuoteNotAccepted
		}

		var consent models.Consent
		if err := tx.First(&consent, "id = ?", consentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConsentNotFound
			}
			return err
		}
		if consent.QuoteID != quote.ID {
			return ErrConsentMismatch
		}

		secrets := tenant.SigningSecrets()
		version := tenant.ActiveSecretVersion()
		secret, ok := secrets[version]
		if len(secrets) == 0 || version == "" || !ok {
			return ErrNoSigningSecret
		}

		var customer models.Customer
		if err := tx.First(&customer, "id = ?", quote.CustomerID).Error; err != nil {
			return err
		}

		serial := deriveSerial(quote.QuoteNumber)
		issueDate := utils.BeginningOfDay(time.Now())
		amount := quote.TotalCents

		items := make([]itemDigest, 0, len(quote.Items))
		for _, item := range quote.Items {
			items = append(items, itemDigest{
				Name:       item.Name,
				Quantity:   item.Quantity.String(),
				TotalCents: item.TotalCents,
			})
		}

		hashFull, hashShort, err := contentHash(receiptSnapshot{
			Serial:      serial,
			QuoteID:     quote.ID,
			AmountCents: amount,
			IssueDate:   issueDate.Format("2006-01-02"),
			Customer:    maskCustomerName(customer.Name),
			Items:       items,
			ConsentID:   consent.ID,
		})
		if err != nil {
			return err
		}

		expiresAt := issueDate.AddDate(tenant.RetentionYears(), 0, 0)
		token := signToken(secret, serial, amount, issueDate)

		var existing models.Receipt
		err = tx.Where("quote_id = ?", quote.ID).First(&existing).Error
		switch {
		case err == nil:
			// Re-issuance: replace derived fields, keep the row.
			updates := map[string]interface{}{
				"consent_id":         consent.ID,
				"serial":             serial,
				"amount_cents":       amount,
				"issue_date":         issueDate,
				"hash_full":          hashFull,
				"hash_short":         hashShort,
				"verification_token": token,
				"secret_version":     version,
				"status":             models.ReceiptStatusIssued,
				"expires_at":         expiresAt,
			}
			if err := tx.Model(&models.Receipt{}).Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return err
			}
			return tx.First(&receipt, "id = ?", existing.ID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			receipt = models.Receipt{
				ID:                uuid.New(),
				TenantID:          tenantID,
				QuoteID:           quote.ID,
				ConsentID:         consent.ID,
				Serial:            serial,
				AmountCents:       amount,
				IssueDate:         issueDate,
				HashFull:          hashFull,
				HashShort:         hashShort,
				VerificationToken: token,
				SecretVersion:     version,
				Status:            models.ReceiptStatusIssued,
				ExpiresAt:         expiresAt,
			}
			return tx.Create(&receipt).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Verify checks a third-party verification request. It never mutates
// receipt or quote state; the only write is the append-only audit row
// recorded for every attempt, whatever the outcome.
//
// Serials are unique per tenant, so the lookup collects all candidates and
// accepts the request if any candidate's recomputed token matches in
// constant time. Failure classes come from the first candidate.
func (s *ReceiptService) Verify(serial, token, requesterIP string) (*VerificationResult, error) {
	result := s.verify(serial, token)

	audit := models.ReceiptVerification{
		ID:            uuid.New(),
		Serial:        serial,
		Outcome:       result.Outcome,
		FailureReason: result.FailureReason,
		RequesterIP:   requesterIP,
	}
	if result.Receipt != nil {
		id := result.Receipt.ID
		audit.ReceiptID = &id
	}
	if err := s.db.Create(&audit).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (s *ReceiptService) verify(serial, token string) *VerificationResult {
	var candidates []models.Receipt
	if err := s.db.Where("serial = ? AND status = ?", serial, models.ReceiptStatusIssued).
		Find(&candidates).Error; err != nil || len(candidates) == 0 {
		return &VerificationResult{
			Outcome:       models.VerifyOutcomeNotFound,
			FailureReason: "no receipt with this serial",
		}
	}

	// The class reported on full failure reflects the first candidate;
	// cross-tenant serial collisions are the only case with more than one.
	fallback := &VerificationResult{
		Outcome:       models.VerifyOutcomeTokenInvalid,
		FailureReason: "verification code does not match",
		Receipt:       &candidates[0],
	}

	for i := range candidates {
		receipt := &candidates[i]

		var tenant models.Tenant
		if err := s.db.First(&tenant, "id = ?", receipt.TenantID).Error; err != nil {
			continue
		}

		secrets := tenant.SigningSecrets()
		if len(secrets) == 0 {
			if fallback.Outcome == models.VerifyOutcomeTokenInvalid {
				fallback = &VerificationResult{
					Outcome:       models.VerifyOutcomeSecretMissing,
					FailureReason: "no signing secret configured",
					Receipt:       receipt,
				}
			}
			continue
		}

		// Verify with the version the receipt was signed under, so secret
		// rotation never invalidates old receipts.
		secret, ok := secrets[receipt.SecretVersion]
		if !ok {
			if fallback.Outcome == models.VerifyOutcomeTokenInvalid {
				fallback = &VerificationResult{
					Outcome:       models.VerifyOutcomeSecretVersionMissing,
					FailureReason: fmt.Sprintf("secret version %s is no longer configured", receipt.SecretVersion),
					Receipt:       receipt,
				}
			}
			continue
		}

		expected := signToken(secret, receipt.Serial, receipt.AmountCents, receipt.IssueDate)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
			continue
		}

		// Signature holds; the retention window still gates validity.
		if time.Now().After(receipt.ExpiresAt) {
			return &VerificationResult{
				Outcome:       models.VerifyOutcomeRecordExpired,
				FailureReason: "retention window elapsed",
				Receipt:       receipt,
			}
		}

		return &VerificationResult{
			Valid:   true,
			Outcome: models.VerifyOutcomeValid,
			Receipt: receipt,
		}
	}

	return fallback
}

func (s *ReceiptService) GetByQuote(tenantID, quoteID uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := s.db.Where("tenant_id = ? AND quote_id = ?", tenantID, quoteID).
		First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// VerifyURL builds the link a third party follows to check the receipt.
// Also used as the QR link target.
func VerifyURL(receipt *models.Receipt) string {
	base := os.Getenv("PUBLIC_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	params := url.Values{}
	params.Set("serial", receipt.Serial)
	params.Set("token", receipt.VerificationToken)
	return base + "/public/receipts/verify?" + params.Encode()
}

// QRPayload is the delimited string embedded in the printed QR code.
func QRPayload(receipt *models.Receipt) string {
	return strings.Join([]string{
		receipt.Serial,
		strconv.FormatInt(receipt.AmountCents, 10),
		receipt.IssueDate.Format("2006-01-02"),
		receipt.SecretVersion,
		receipt.VerificationToken,
	}, "|")
}
