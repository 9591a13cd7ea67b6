package services

import (
	"testing"
	"time"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func signingSettings() models.JSONB {
	return models.JSONB{
		"signing_secrets":       map[string]interface{}{"v1": "first-signing-secret"},
		"active_secret_version": "v1",
	}
}

func seedAcceptedQuote(t *testing.T, db *gorm.DB, tenantID uuid.UUID) (*models.Quote, *models.Consent) {
	t.Helper()
	customer := seedCustomer(t, db, tenantID)
	quote := models.Quote{
		ID:              uuid.New(),
		TenantID:        tenantID,
		CreatedByUserID: uuid.New(),
		QuoteNumber:     "Q-2025-000042",
		CustomerID:      customer.ID,
		QuoteDate:       time.Now(),
		Status:          models.QuoteStatusAccepted,
		SubtotalCents:   10000,
		TaxCents:        1900,
		TotalCents:      11900,
	}
	require.NoError(t, db.Create(&quote).Error)

	item := models.QuoteItem{
		ID:             uuid.New(),
		QuoteID:        quote.ID,
		CatalogItemID:  uuid.New(),
		Name:           "Brake service",
		Quantity:       decimal.RequireFromString("1"),
		UnitPriceCents: 10000,
		TaxRate:        decimal.RequireFromString("19"),
		SubtotalCents:  10000,
		TaxCents:       1900,
		TotalCents:     11900,
	}
	require.NoError(t, db.Create(&item).Error)

	consent := models.Consent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		QuoteID:    quote.ID,
		Decision:   models.ConsentDecisionAccepted,
		Method:     models.ConsentMethodTokenLink,
		RecordedAt: time.Now(),
	}
	require.NoError(t, db.Create(&consent).Error)
	return &quote, &consent
}

func updateTenantSettings(t *testing.T, db *gorm.DB, tenantID uuid.UUID, settings models.JSONB) {
	t.Helper()
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", tenantID).
		Update("settings", settings).Error)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	receipt, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)
	assert.Equal(t, "RCT-2025-000042", receipt.Serial)
	assert.Equal(t, int64(11900), receipt.AmountCents)
	assert.Equal(t, "v1", receipt.SecretVersion)
	assert.Equal(t, models.ReceiptStatusIssued, receipt.Status)
	assert.NotEmpty(t, receipt.VerificationToken)
	assert.Len(t, receipt.HashShort, 8)

	result, err := receipts.Verify(receipt.Serial, receipt.VerificationToken, "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, models.VerifyOutcomeValid, result.Outcome)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, receipt.ID, result.Receipt.ID)

	var audit models.ReceiptVerification
	require.NoError(t, db.First(&audit, "serial = ?", receipt.Serial).Error)
	assert.Equal(t, models.VerifyOutcomeValid, audit.Outcome)
	require.NotNil(t, audit.ReceiptID)
	assert.Equal(t, receipt.ID, *audit.ReceiptID)
}

func TestSecretRotationKeepsOldReceiptsValid(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	receipt, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)

	// Rotate: v2 becomes active but v1 stays in the map.
	updateTenantSettings(t, db, tenant.ID, models.JSONB{
		"signing_secrets": map[string]interface{}{
			"v1": "first-signing-secret",
			"v2": "second-signing-secret",
		},
		"active_secret_version": "v2",
	})

	result, err := receipts.Verify(receipt.Serial, receipt.VerificationToken, "")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	// New receipts sign under the freshly active version.
	quote2, consent2 := func() (*models.Quote, *models.Consent) {
		customer := models.Customer{
			ID:              uuid.New(),
			TenantID:        tenant.ID,
			CreatedByUserID: uuid.New(),
			Name:            "John Smith",
			Phone:           "+4915199998888",
			IsActive:        true,
		}
		require.NoError(t, db.Create(&customer).Error)
		q := models.Quote{
			ID:              uuid.New(),
			TenantID:        tenant.ID,
			CreatedByUserID: uuid.New(),
			QuoteNumber:     "Q-2025-000043",
			CustomerID:      customer.ID,
			QuoteDate:       time.Now(),
			Status:          models.QuoteStatusAccepted,
			TotalCents:      5000,
		}
		require.NoError(t, db.Create(&q).Error)
		c := models.Consent{
			ID:         uuid.New(),
			TenantID:   tenant.ID,
			QuoteID:    q.ID,
			Decision:   models.ConsentDecisionAccepted,
			Method:     models.ConsentMethodTokenLink,
			RecordedAt: time.Now(),
		}
		require.NoError(t, db.Create(&c).Error)
		return &q, &c
	}()
	second, err := receipts.IssueReceipt(tenant.ID, quote2.ID, consent2.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", second.SecretVersion)
}

func TestReissueUpdatesRowInPlace(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	first, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)

	// The quote total changed between issuances; the receipt must follow.
	require.NoError(t, db.Model(&models.Quote{}).Where("id = ?", quote.ID).
		Update("total_cents", 12900).Error)

	second, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Serial, second.Serial)
	assert.Equal(t, int64(12900), second.AmountCents)
	assert.NotEqual(t, first.VerificationToken, second.VerificationToken)

	var count int64
	require.NoError(t, db.Model(&models.Receipt{}).Where("quote_id = ?", quote.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Only the latest token verifies.
	result, err := receipts.Verify(second.Serial, second.VerificationToken, "")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	result, err = receipts.Verify(first.Serial, first.VerificationToken, "")
	require.NoError(t, err)
	assert.Equal(t, models.VerifyOutcomeTokenInvalid, result.Outcome)
}

func TestVerifyFailureClasses(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	receipt, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)

	t.Run("unknown serial", func(t *testing.T) {
		result, err := receipts.Verify("RCT-2025-999999", receipt.VerificationToken, "")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, models.VerifyOutcomeNotFound, result.Outcome)
	})

	t.Run("wrong token", func(t *testing.T) {
		result, err := receipts.Verify(receipt.Serial, "deadbeef", "")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, models.VerifyOutcomeTokenInvalid, result.Outcome)
	})

	t.Run("secret version dropped", func(t *testing.T) {
		updateTenantSettings(t, db, tenant.ID, models.JSONB{
			"signing_secrets":       map[string]interface{}{"v2": "second-signing-secret"},
			"active_secret_version": "v2",
		})
		result, err := receipts.Verify(receipt.Serial, receipt.VerificationToken, "")
		require.NoError(t, err)
		assert.Equal(t, models.VerifyOutcomeSecretVersionMissing, result.Outcome)
	})

	t.Run("secrets removed entirely", func(t *testing.T) {
		updateTenantSettings(t, db, tenant.ID, models.JSONB{})
		result, err := receipts.Verify(receipt.Serial, receipt.VerificationToken, "")
		require.NoError(t, err)
		assert.Equal(t, models.VerifyOutcomeSecretMissing, result.Outcome)
	})

	t.Run("retention window elapsed", func(t *testing.T) {
		updateTenantSettings(t, db, tenant.ID, signingSettings())
		require.NoError(t, db.Model(&models.Receipt{}).Where("id = ?", receipt.ID).
			Update("expires_at", time.Now().Add(-time.Hour)).Error)
		result, err := receipts.Verify(receipt.Serial, receipt.VerificationToken, "")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, models.VerifyOutcomeRecordExpired, result.Outcome)
	})
}

func TestVerifyAppendsAuditRowPerAttempt(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	receipt, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	require.NoError(t, err)

	_, err = receipts.Verify(receipt.Serial, receipt.VerificationToken, "192.0.2.1")
	require.NoError(t, err)
	_, err = receipts.Verify(receipt.Serial, "wrong", "192.0.2.1")
	require.NoError(t, err)
	_, err = receipts.Verify("RCT-2025-777777", "wrong", "192.0.2.1")
	require.NoError(t, err)

	var total int64
	require.NoError(t, db.Model(&models.ReceiptVerification{}).Count(&total).Error)
	assert.Equal(t, int64(3), total)

	// The miss on an unknown serial is logged without a receipt reference.
	var miss models.ReceiptVerification
	require.NoError(t, db.First(&miss, "serial = ?", "RCT-2025-777777").Error)
	assert.Nil(t, miss.ReceiptID)
	assert.Equal(t, models.VerifyOutcomeNotFound, miss.Outcome)
}

func TestIssueReceiptRequiresAcceptedQuote(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	require.NoError(t, db.Model(&models.Quote{}).Where("id = ?", quote.ID).
		Update("status", models.QuoteStatusSent).Error)

	_, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	assert.ErrorIs(t, err, ErrQuoteNotAccepted)
}

func TestIssueReceiptRequiresSigningSecret(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil) // no signing configuration
	quote, consent := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	_, err := receipts.IssueReceipt(tenant.ID, quote.ID, consent.ID)
	assert.ErrorIs(t, err, ErrNoSigningSecret)
}

func TestIssueReceiptRejectsForeignConsent(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, signingSettings())
	quote, _ := seedAcceptedQuote(t, db, tenant.ID)
	receipts := NewReceiptService(db)

	foreign := models.Consent{
		ID:         uuid.New(),
		TenantID:   tenant.ID,
		QuoteID:    uuid.New(), // some other quote
		Decision:   models.ConsentDecisionAccepted,
		Method:     models.ConsentMethodTokenLink,
		RecordedAt: time.Now(),
	}
	require.NoError(t, db.Create(&foreign).Error)

	_, err := receipts.IssueReceipt(tenant.ID, quote.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrConsentMismatch)
}

func TestMaskCustomerName(t *testing.T) {
	assert.Equal(t, "J*** D**", maskCustomerName("Jane Doe"))
	assert.Equal(t, "A", maskCustomerName("A"))
	assert.Equal(t, "", maskCustomerName(""))
}
