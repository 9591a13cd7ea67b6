package controllers

import (
	"errors"
	"net/http"

	"quotepro-backend/services"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IssueReceiptInput struct {
	ConsentID uuid.UUID `json:"consentId" binding:"required"`
}

type ReceiptController struct {
	Receipts *services.ReceiptService
}

// IssueReceipt produces (or re-issues) the signed receipt for an accepted
// quote
func (ctl *ReceiptController) IssueReceipt(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input IssueReceiptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	receipt, err := ctl.Receipts.IssueReceipt(tenantUUID, quoteUUID, input.ConsentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuoteNotFound),
			errors.Is(err, services.ErrConsentNotFound):
			utils.RespondWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrQuoteNotAccepted),
			errors.Is(err, services.ErrConsentMismatch):
			utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, services.ErrNoSigningSecret):
			// configuration problem, not a bad request
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"Receipt signing is not configured for this account")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to issue receipt")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serial":    receipt.Serial,
		"verifyUrl": services.VerifyURL(receipt),
		"hashShort": receipt.HashShort,
		"qrPayload": services.QRPayload(receipt),
		"expiresAt": receipt.ExpiresAt,
	})
}

// GetReceipt returns the receipt issued for a quote, if any
func (ctl *ReceiptController) GetReceipt(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	quoteUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	receipt, err := ctl.Receipts.GetByQuote(tenantUUID, quoteUUID)
	if err != nil {
		if errors.Is(err, services.ErrReceiptNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, err.Error())
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serial":    receipt.Serial,
		"amount":    receipt.AmountCents,
		"issueDate": receipt.IssueDate,
		"hashShort": receipt.HashShort,
		"status":    receipt.Status,
		"verifyUrl": services.VerifyURL(receipt),
	})
}

// Verify is the public endpoint a third party hits with serial + token.
// Verification outcomes are results, not errors; every attempt lands in
// the audit log.
func (ctl *ReceiptController) Verify(c *gin.Context) {
	serial := c.Query("serial")
	token := c.Query("token")
	if serial == "" || token == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "serial and token are required")
		return
	}

	result, err := ctl.Receipts.Verify(serial, token, c.ClientIP())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Verification unavailable")
		return
	}

	response := gin.H{
		"valid":   result.Valid,
		"outcome": result.Outcome,
	}
	if result.FailureReason != "" {
		response["failureReason"] = result.FailureReason
	}
	if result.Valid && result.Receipt != nil {
		response["receipt"] = gin.H{
			"serial":    result.Receipt.Serial,
			"amount":    result.Receipt.AmountCents,
			"issueDate": result.Receipt.IssueDate.Format("2006-01-02"),
			"hashShort": result.Receipt.HashShort,
		}
	}

	c.JSON(http.StatusOK, response)
}
