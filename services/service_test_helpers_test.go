package services

import (
	"fmt"
	"strings"
	"testing"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Customer{},
		&models.Category{},
		&models.CatalogItem{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.SequenceCounter{},
		&models.ConsentToken{},
		&models.Consent{},
		&models.Receipt{},
		&models.ReceiptVerification{},
		&models.DeliveryLog{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, settings models.JSONB) *models.Tenant {
	t.Helper()
	if settings == nil {
		settings = models.JSONB{}
	}
	tenant := models.Tenant{
		ID:       uuid.New(),
		Name:     "Acme Workshop",
		Settings: settings,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return &tenant
}

func seedCustomer(t *testing.T, db *gorm.DB, tenantID uuid.UUID) *models.Customer {
	t.Helper()
	customer := models.Customer{
		ID:              uuid.New(),
		TenantID:        tenantID,
		CreatedByUserID: uuid.New(),
		Name:            "Jane Doe",
		Phone:           "+4915112345678",
		IsActive:        true,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return &customer
}

func seedCatalogItem(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, priceCents int64, taxRate string, active bool) *models.CatalogItem {
	t.Helper()
	item := models.CatalogItem{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Name:           name,
		UnitPriceCents: priceCents,
		TaxRate:        decimal.RequireFromString(taxRate),
		Unit:           "pcs",
		IsActive:       active,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed catalog item: %v", err)
	}
	if !active {
		// IsActive has a default:true tag, so GORM omits the zero value on
		// create; persist the inactive state explicitly.
		if err := db.Model(&item).Update("is_active", false).Error; err != nil {
			t.Fatalf("seed catalog item inactive: %v", err)
		}
	}
	return &item
}

func qty(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}
