package controllers

import (
	"errors"
	"net/http"

	"quotepro-backend/models"
	"quotepro-backend/services"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ConsentController serves the unauthenticated endpoints an external party
// reaches through a consent link. No staff JWT is involved; the token in
// the URL is the only credential.
type ConsentController struct {
	DB       *gorm.DB
	Consents *services.ConsentService
}

func consentTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "This link is not valid")
	case errors.Is(err, services.ErrTokenExpired):
		utils.RespondWithError(c, http.StatusGone, "This link has expired. Please ask for a fresh one.")
	case errors.Is(err, services.ErrTokenNotActive):
		utils.RespondWithError(c, http.StatusGone, "This link has already been used")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// ShowQuote resolves a consent link and returns the quote summary the
// external party is deciding on
func (ctl *ConsentController) ShowQuote(c *gin.Context) {
	token, err := ctl.Consents.LookupToken(c.Param("token"))
	if err != nil {
		consentTokenError(c, err)
		return
	}
	if token.Status != models.TokenStatusActive {
		consentTokenError(c, services.ErrTokenNotActive)
		return
	}

	var quote models.Quote
	if err := ctl.DB.Preload("Items").First(&quote, "id = ?", token.QuoteID).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Something went wrong")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quoteNumber":   quote.QuoteNumber,
		"quoteDate":     quote.QuoteDate,
		"subtotalCents": quote.SubtotalCents,
		"taxCents":      quote.TaxCents,
		"totalCents":    quote.TotalCents,
		"items":         quote.Items,
		"expiresAt":     token.ExpiresAt,
	})
}

func (ctl *ConsentController) apply(c *gin.Context, action services.ConsentAction) {
	consent, err := ctl.Consents.Apply(action, c.Param("token"), services.ConsentMeta{
		RequesterIP: c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		consentTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"decision": consent.Decision,
	})
}

// Accept consumes the token and marks the quote accepted
func (ctl *ConsentController) Accept(c *gin.Context) {
	ctl.apply(c, services.ActionAccept)
}

// Reject revokes the quote's tokens and marks it rejected
func (ctl *ConsentController) Reject(c *gin.Context) {
	ctl.apply(c, services.ActionReject)
}
