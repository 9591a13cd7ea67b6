package controllers

import (
	"errors"
	"net/http"

	"quotepro-backend/models"
	"quotepro-backend/services"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UpdateQuoteStatusInput struct {
	Status string `json:"status" binding:"required,oneof=sent expired cancelled"`
}

type UpdateQuoteItemInput struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

type QuoteController struct {
	DB       *gorm.DB
	Quotes   *services.QuoteService
	Consents *services.ConsentService
	Delivery *services.DeliveryService
}

// quoteServiceError maps core service failures onto HTTP responses.
func quoteServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrCatalogItemNotFound):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrCatalogItemInvalid),
		errors.Is(err, services.ErrNoValidItems),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrQuoteNotEditable),
		errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrQuoteItemNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// CreateQuote creates a new quote with its line items in one transaction
func (ctl *QuoteController) CreateQuote(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}

	var input services.CreateQuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	quote, err := ctl.Quotes.CreateQuote(tenantUUID, userUUID, input)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"quoteId":     quote.ID,
		"quoteNumber": quote.QuoteNumber,
		"quote":       quote,
	})
}

// GetQuotes retrieves all quotes for the tenant
func (ctl *QuoteController) GetQuotes(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	quotes, err := ctl.Quotes.ListQuotes(tenantUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve quotes")
		return
	}

	c.JSON(http.StatusOK, quotes)
}

// GetQuote retrieves a specific quote by ID
func (ctl *QuoteController) GetQuote(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quote, err := ctl.Quotes.GetQuote(tenantUUID, quoteUUID)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// UpdateStatus performs a staff-driven status move (send/expire/cancel)
func (ctl *QuoteController) UpdateStatus(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input UpdateQuoteStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	quote, err := ctl.Quotes.UpdateStatus(tenantUUID, quoteUUID, input.Status)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// SendQuote issues (or reuses) a consent token, delivers the link to the
// customer and moves a draft quote to sent
func (ctl *QuoteController) SendQuote(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quote, err := ctl.Quotes.GetQuote(tenantUUID, quoteUUID)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	token, err := ctl.Consents.GetOrCreateToken(tenantUUID, quoteUUID)
	if err != nil {
		if errors.Is(err, services.ErrQuoteClosed) {
			utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to issue consent token")
		}
		return
	}

	var customer models.Customer
	if err := ctl.DB.First(&customer, "id = ?", quote.CustomerID).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	if err := ctl.Delivery.SendConsentLink(quote, &customer, token); err != nil {
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to deliver consent link")
		return
	}

	if quote.Status == models.QuoteStatusDraft {
		if _, err := ctl.Quotes.UpdateStatus(tenantUUID, quoteUUID, models.QuoteStatusSent); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update quote status")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Quote sent",
		"expiresAt": token.ExpiresAt,
	})
}

// IssueConsentToken returns an active consent link for manual delivery.
// The raw token value appears in this response and nowhere else.
func (ctl *QuoteController) IssueConsentToken(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	token, err := ctl.Consents.GetOrCreateToken(tenantUUID, quoteUUID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuoteNotFound):
			utils.RespondWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrQuoteClosed):
			utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to issue consent token")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token.RawValue,
		"expiresAt": token.ExpiresAt,
	})
}

// RejectQuote lets staff reject on the customer's behalf, revoking all
// active consent tokens
func (ctl *QuoteController) RejectQuote(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	consent, err := ctl.Consents.StaffReject(tenantUUID, quoteUUID, services.ConsentMeta{
		RequesterIP: c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, services.ErrQuoteNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, err.Error())
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to reject quote")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quote rejected", "consentId": consent.ID})
}

// AddItem appends a line item to an existing quote
func (ctl *QuoteController) AddItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input services.QuoteItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	quote, err := ctl.Quotes.AddItem(tenantUUID, quoteUUID, input)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// UpdateItem changes a line item's quantity
func (ctl *QuoteController) UpdateItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemUUID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var input UpdateQuoteItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	quote, err := ctl.Quotes.UpdateItemQuantity(tenantUUID, quoteUUID, itemUUID, input.Quantity)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// DeleteItem removes a line item
func (ctl *QuoteController) DeleteItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemUUID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	quote, err := ctl.Quotes.RemoveItem(tenantUUID, quoteUUID, itemUUID)
	if err != nil {
		quoteServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
