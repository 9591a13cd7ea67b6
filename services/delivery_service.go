// services/delivery_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quotepro-backend/models"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// DeliveryService pushes consent links to customers over SMS/WhatsApp and
// keeps a log row per attempt.
type DeliveryService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewDeliveryService(db *gorm.DB) *DeliveryService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &DeliveryService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func consentURL(raw string) string {
	base := os.Getenv("PUBLIC_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return base + "/public/consent/" + raw
}

// SendConsentLink delivers the quote's consent link to the customer. The
// raw token value travels only over this channel; storage keeps the hash.
func (s *DeliveryService) SendConsentLink(quote *models.Quote, customer *models.Customer, token *models.ConsentToken) error {
	message := fmt.Sprintf(
		"Your quote %s is ready. Review and respond here: %s (link valid until %s)",
		quote.QuoteNumber,
		consentURL(token.RawValue),
		token.ExpiresAt.Format("Jan 2, 2006"),
	)

	// WhatsApp if phone is in E.164 format, else SMS
	channel := "sms"
	to := customer.Phone
	if strings.HasPrefix(customer.Phone, "+") {
		to = "whatsapp:" + customer.Phone
		channel = "whatsapp"
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(message)
	if channel == "whatsapp" {
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, sendErr := s.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if sendErr != nil {
		log.Printf("Failed to send consent link to %s: %v", customer.Phone, sendErr)
		status = "failed"
		errorMsg = sendErr.Error()
	} else if resp.Sid != nil {
		log.Printf("Consent link sent to %s, SID: %s", customer.Phone, *resp.Sid)
	} else {
		log.Printf("Consent link sent to %s, but no SID returned", customer.Phone)
	}

	deliveryLog := models.DeliveryLog{
		TenantID:     quote.TenantID,
		QuoteID:      quote.ID,
		CustomerID:   customer.ID,
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      channel,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&deliveryLog).Error; err != nil {
		log.Printf("Failed to log delivery for quote %s: %v", quote.ID, err)
	}

	return sendErr
}
