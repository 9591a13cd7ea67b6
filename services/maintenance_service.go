// services/maintenance_service.go
package services

import (
	"log"
	"time"

	"quotepro-backend/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MaintenanceService runs the daily housekeeping pass. Token expiry is
// normally persisted lazily at read time; the sweep covers tokens nobody
// ever looks up again, so the audit trail stays complete.
type MaintenanceService struct {
	db *gorm.DB
}

func NewMaintenanceService(db *gorm.DB) *MaintenanceService {
	return &MaintenanceService{db: db}
}

func (s *MaintenanceService) StartScheduler() {
	c := cron.New()

	// Run daily at 3 AM
	c.AddFunc("0 3 * * *", func() {
		if err := s.ExpireOverdueTokens(); err != nil {
			log.Printf("Token expiry sweep failed: %v", err)
		}
	})

	c.Start()
	log.Println("Maintenance scheduler started")
}

// ExpireOverdueTokens persists the expired state on active tokens whose
// expires_at has passed.
func (s *MaintenanceService) ExpireOverdueTokens() error {
	result := s.db.Model(&models.ConsentToken{}).
		Where("status = ? AND expires_at < ?", models.TokenStatusActive, time.Now()).
		Update("status", models.TokenStatusExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Expired %d overdue consent tokens", result.RowsAffected)
	}
	return nil
}
