// services/quote_service.go
package services

import (
	"errors"
	"time"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrQuoteItemNotFound = errors.New("quote item not found")
	ErrNoValidItems      = errors.New("quote needs at least one valid item")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrQuoteNotEditable  = errors.New("quote can no longer be edited")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type QuoteItemInput struct {
	CatalogItemID uuid.UUID       `json:"catalogItemId" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type CreateQuoteInput struct {
	CustomerID uuid.UUID        `json:"customerId" binding:"required"`
	QuoteDate  *time.Time       `json:"quoteDate"`
	ValidUntil *time.Time       `json:"validUntil"`
	Notes      string           `json:"notes"`
	Items      []QuoteItemInput `json:"items" binding:"required,min=1"`
}

type QuoteService struct {
	db        *gorm.DB
	sequences *SequenceService
	catalog   *CatalogService
}

func NewQuoteService(db *gorm.DB, sequences *SequenceService, catalog *CatalogService) *QuoteService {
	return &QuoteService{db: db, sequences: sequences, catalog: catalog}
}

// CreateQuote creates the quote header and its line items in one
// transaction. The document number is drawn inside the same transaction, so
// any failure rolls the consumed number back with the rest.
//
// Bulk-creation tolerance: items with non-positive quantity or an unknown
// catalog id are skipped; a catalog id that resolves but fails validation
// aborts the whole transaction.
func (s *QuoteService) CreateQuote(tenantID, userID uuid.UUID, input CreateQuoteInput) (*models.Quote, error) {
	var quote models.Quote

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, input.CustomerID).
			First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		number, err := s.sequences.NextNumber(tx, tenantID)
		if err != nil {
			return err
		}

		quoteDate := time.Now()
		if input.QuoteDate != nil {
			quoteDate = *input.QuoteDate
		}

		quote = models.Quote{
			ID:              uuid.New(),
			TenantID:        tenantID,
			CreatedByUserID: userID,
			QuoteNumber:     number.Formatted,
			CustomerID:      customer.ID,
			QuoteDate:       quoteDate,
			ValidUntil:      input.ValidUntil,
			Status:          models.QuoteStatusDraft,
			Notes:           input.Notes,
		}

		// Header first with zero totals; real totals follow the items.
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}

		var (
			subtotal int64
			tax      int64
			written  int
		)
		for _, item := range input.Items {
			if !item.Quantity.IsPositive() {
				continue
			}
			catalogItem, err := s.catalog.Snapshot(tx, tenantID, item.CatalogItemID)
			if errors.Is(err, ErrCatalogItemNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			row := buildQuoteItem(quote.ID, catalogItem, item.Quantity)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			subtotal += row.SubtotalCents
			tax += row.TaxCents
			written++
		}

		if written == 0 {
			return ErrNoValidItems
		}

		quote.SubtotalCents = subtotal
		quote.TaxCents = tax
		quote.TotalCents = subtotal + tax
		if err := tx.Model(&models.Quote{}).Where("id = ?", quote.ID).
			Updates(map[string]interface{}{
				"subtotal_cents": quote.SubtotalCents,
				"tax_cents":      quote.TaxCents,
				"total_cents":    quote.TotalCents,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Customer{}).Where("id = ?", customer.ID).
			Update("last_quote", quoteDate).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetQuote(tenantID, quote.ID)
}

// buildQuoteItem snapshots the catalog item's price, tax rate and unit onto
// a new line. Quantities carry up to 4 decimal places; every line amount is
// rounded to the nearest minor currency unit.
func buildQuoteItem(quoteID uuid.UUID, catalogItem *models.CatalogItem, qty decimal.Decimal) models.QuoteItem {
	qty = qty.Truncate(4)
	unitPrice := decimal.NewFromInt(catalogItem.UnitPriceCents)

	lineSubtotal := qty.Mul(unitPrice).Round(0).IntPart()
	lineTax := decimal.NewFromInt(lineSubtotal).
		Mul(catalogItem.TaxRate).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()

	return models.QuoteItem{
		ID:             uuid.New(),
		QuoteID:        quoteID,
		CatalogItemID:  catalogItem.ID,
		Name:           catalogItem.Name,
		Unit:           catalogItem.Unit,
		Quantity:       qty,
		UnitPriceCents: catalogItem.UnitPriceCents,
		TaxRate:        catalogItem.TaxRate,
		SubtotalCents:  lineSubtotal,
		TaxCents:       lineTax,
		TotalCents:     lineSubtotal + lineTax,
	}
}

// recomputeTotals re-derives the header totals by re-summing all current
// items. Never adjust incrementally: partial failures and per-line rounding
// would drift.
func (s *QuoteService) recomputeTotals(tx *gorm.DB, quoteID uuid.UUID) error {
	var items []models.QuoteItem
	if err := tx.Where("quote_id = ?", quoteID).Find(&items).Error; err != nil {
		return err
	}

	var subtotal, tax int64
	for _, item := range items {
		subtotal += item.SubtotalCents
		tax += item.TaxCents
	}

	return tx.Model(&models.Quote{}).Where("id = ?", quoteID).
		Updates(map[string]interface{}{
			"subtotal_cents": subtotal,
			"tax_cents":      tax,
			"total_cents":    subtotal + tax,
		}).Error
}

// editableQuote loads a quote that may still have its items changed.
func (s *QuoteService) editableQuote(tx *gorm.DB, tenantID, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := tx.Where("tenant_id = ? AND id = ?", tenantID, quoteID).First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	if quote.Status != models.QuoteStatusDraft && quote.Status != models.QuoteStatusSent {
		return nil, ErrQuoteNotEditable
	}
	return &quote, nil
}

// AddItem appends one line to an existing quote. Unlike bulk creation, an
// unresolved catalog id here is a hard error.
func (s *QuoteService) AddItem(tenantID, quoteID uuid.UUID, input QuoteItemInput) (*models.Quote, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		quote, err := s.editableQuote(tx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if !input.Quantity.IsPositive() {
			return ErrInvalidQuantity
		}
		catalogItem, err := s.catalog.Snapshot(tx, tenantID, input.CatalogItemID)
		if err != nil {
			return err
		}
		row := buildQuoteItem(quote.ID, catalogItem, input.Quantity)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, quote.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(tenantID, quoteID)
}

// UpdateItemQuantity changes one line's quantity and re-derives its amounts
// from the snapshotted price, then re-sums the header.
func (s *QuoteService) UpdateItemQuantity(tenantID, quoteID, itemID uuid.UUID, qty decimal.Decimal) (*models.Quote, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		quote, err := s.editableQuote(tx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if !qty.IsPositive() {
			return ErrInvalidQuantity
		}

		var item models.QuoteItem
		if err := tx.Where("quote_id = ? AND id = ?", quote.ID, itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuoteItemNotFound
			}
			return err
		}

		qty = qty.Truncate(4)
		unitPrice := decimal.NewFromInt(item.UnitPriceCents)
		item.Quantity = qty
		item.SubtotalCents = qty.Mul(unitPrice).Round(0).IntPart()
		item.TaxCents = decimal.NewFromInt(item.SubtotalCents).
			Mul(item.TaxRate).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart()
		item.TotalCents = item.SubtotalCents + item.TaxCents

		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, quote.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(tenantID, quoteID)
}

// RemoveItem deletes one line and re-sums the header from the remainder.
func (s *QuoteService) RemoveItem(tenantID, quoteID, itemID uuid.UUID) (*models.Quote, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		quote, err := s.editableQuote(tx, tenantID, quoteID)
		if err != nil {
			return err
		}

		result := tx.Where("quote_id = ? AND id = ?", quote.ID, itemID).Delete(&models.QuoteItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrQuoteItemNotFound
		}
		return s.recomputeTotals(tx, quote.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(tenantID, quoteID)
}

func (s *QuoteService) GetQuote(tenantID, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, quoteID).
		First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	return &quote, nil
}

func (s *QuoteService) ListQuotes(tenantID uuid.UUID) ([]models.Quote, error) {
	var quotes []models.Quote
	if err := s.db.Preload("Items").
		Where("tenant_id = ?", tenantID).
		Order("quote_date DESC").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

// staff-drivable status moves; accepted/rejected only happen through the
// consent flow.
var staffTransitions = map[string][]string{
	models.QuoteStatusDraft: {models.QuoteStatusSent, models.QuoteStatusCancelled},
	models.QuoteStatusSent:  {models.QuoteStatusExpired, models.QuoteStatusCancelled},
}

func (s *QuoteService) UpdateStatus(tenantID, quoteID uuid.UUID, status string) (*models.Quote, error) {
	quote, err := s.GetQuote(tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range staffTransitions[quote.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	if err := s.db.Model(&models.Quote{}).Where("id = ?", quote.ID).
		Update("status", status).Error; err != nil {
		return nil, err
	}
	quote.Status = status
	return quote, nil
}
