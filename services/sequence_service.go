// services/sequence_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTenantNotFound = errors.New("tenant not found")

// DocumentNumber is the structured result of a sequence draw.
type DocumentNumber struct {
	Formatted string
	Prefix    string
	Year      int
	Value     int64
}

// SequenceService issues unique, gap-free, monotonically increasing document
// numbers per (tenant, year).
type SequenceService struct{}

func NewSequenceService() *SequenceService {
	return &SequenceService{}
}

// NextNumber draws the next number for the tenant's current-year counter.
// It must be called inside the same transaction that inserts the document
// consuming the number: the increment takes a row lock that is held until
// commit, so concurrent callers queue behind it and a rollback of the
// document insert rolls the increment back too, keeping committed numbers
// contiguous.
//
// The counter row is created lazily with the tenant's configured prefix.
func (s *SequenceService) NextNumber(tx *gorm.DB, tenantID uuid.UUID) (DocumentNumber, error) {
	var tenant models.Tenant
	if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentNumber{}, ErrTenantNotFound
		}
		return DocumentNumber{}, err
	}

	year := time.Now().Year()

	// Atomic read-increment-write on the counter row. RETURNING gives us
	// the stored prefix and the drawn value in one round trip; works on
	// both postgres and sqlite.
	query := `
		INSERT INTO sequence_counters (tenant_id, year, prefix, current_number, created_at, updated_at)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id, year) DO UPDATE
		SET current_number = sequence_counters.current_number + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING prefix, current_number`

	var (
		prefix string
		value  int64
	)
	row := tx.Raw(query, tenantID, year, tenant.NumberPrefix()).Row()
	if err := row.Scan(&prefix, &value); err != nil {
		return DocumentNumber{}, fmt.Errorf("draw sequence number: %w", err)
	}

	return DocumentNumber{
		Formatted: fmt.Sprintf("%s-%d-%06d", prefix, year, value),
		Prefix:    prefix,
		Year:      year,
		Value:     value,
	}, nil
}
