package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextNumberStartsAtOneWithDefaultPrefix(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil) // no number_prefix configured
	sequences := NewSequenceService()

	var number DocumentNumber
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = sequences.NextNumber(tx, tenant.ID)
		return err
	})
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("Q-%d-000001", year), number.Formatted)
	assert.Equal(t, int64(1), number.Value)
	assert.Equal(t, "Q", number.Prefix)
}

func TestNextNumberUsesConfiguredPrefix(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, models.JSONB{"number_prefix": "AG"})
	sequences := NewSequenceService()

	var number DocumentNumber
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = sequences.NextNumber(tx, tenant.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("AG-%d-000001", time.Now().Year()), number.Formatted)
}

func TestNextNumberIsContiguousAcrossCommits(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	sequences := NewSequenceService()

	const draws = 5
	for i := 1; i <= draws; i++ {
		var number DocumentNumber
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = sequences.NextNumber(tx, tenant.ID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), number.Value)
	}

	var counter models.SequenceCounter
	require.NoError(t, db.First(&counter, "tenant_id = ?", tenant.ID).Error)
	assert.Equal(t, int64(draws), counter.CurrentNumber)
}

func TestNextNumberRollbackLeavesNoGap(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	sequences := NewSequenceService()

	// First draw commits.
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := sequences.NextNumber(tx, tenant.ID)
		return err
	})
	require.NoError(t, err)

	// Second draw rolls back with its surrounding transaction.
	sentinel := errors.New("document insert failed")
	err = db.Transaction(func(tx *gorm.DB) error {
		number, err := sequences.NextNumber(tx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), number.Value)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// The rolled-back increment must be reissued, not skipped.
	var number DocumentNumber
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = sequences.NextNumber(tx, tenant.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), number.Value)
}

func TestNextNumberCountersAreTenantScoped(t *testing.T) {
	db := newServiceDBForTest(t)
	first := seedTenant(t, db, nil)
	sequences := NewSequenceService()

	second := models.Tenant{ID: uuid.New(), Name: "Other Shop", Settings: models.JSONB{}}
	require.NoError(t, db.Create(&second).Error)

	for _, tenantID := range []uuid.UUID{first.ID, second.ID} {
		var number DocumentNumber
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = sequences.NextNumber(tx, tenantID)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), number.Value)
	}
}

func TestNextNumberUnknownTenant(t *testing.T) {
	db := newServiceDBForTest(t)
	sequences := NewSequenceService()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := sequences.NextNumber(tx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
