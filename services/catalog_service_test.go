package services

import (
	"testing"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCategory(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, parentID *uuid.UUID) *models.Category {
	t.Helper()
	cat := models.Category{
		ID:       uuid.New(),
		TenantID: tenantID,
		ParentID: parentID,
		Name:     name,
		IsActive: true,
	}
	require.NoError(t, db.Create(&cat).Error)
	return &cat
}

func TestSnapshotReturnsActiveItem(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	item := seedCatalogItem(t, db, tenant.ID, "Oil change", 6000, "19", true)
	catalog := NewCatalogService(db)

	snap, err := catalog.Snapshot(db, tenant.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), snap.UnitPriceCents)
	assert.Equal(t, "pcs", snap.Unit)
}

func TestSnapshotUnknownItem(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	catalog := NewCatalogService(db)

	_, err := catalog.Snapshot(db, tenant.ID, uuid.New())
	assert.ErrorIs(t, err, ErrCatalogItemNotFound)
}

func TestSnapshotInactiveItem(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	item := seedCatalogItem(t, db, tenant.ID, "Retired service", 4000, "19", false)
	catalog := NewCatalogService(db)

	_, err := catalog.Snapshot(db, tenant.ID, item.ID)
	assert.ErrorIs(t, err, ErrCatalogItemInvalid)
}

func TestSnapshotIsTenantScoped(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	other := models.Tenant{ID: uuid.New(), Name: "Other Shop", Settings: models.JSONB{}}
	require.NoError(t, db.Create(&other).Error)
	item := seedCatalogItem(t, db, other.ID, "Foreign item", 9900, "19", true)
	catalog := NewCatalogService(db)

	_, err := catalog.Snapshot(db, tenant.ID, item.ID)
	assert.ErrorIs(t, err, ErrCatalogItemNotFound)
}

func TestCategoryTreeAssemblesNestedLevels(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	catalog := NewCatalogService(db)

	repairs := seedCategory(t, db, tenant.ID, "Repairs", nil)
	engine := seedCategory(t, db, tenant.ID, "Engine", &repairs.ID)
	seedCategory(t, db, tenant.ID, "Timing belt", &engine.ID)
	seedCategory(t, db, tenant.ID, "Maintenance", nil)

	tree, err := catalog.CategoryTree(tenant.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	// Roots come back name-ordered.
	assert.Equal(t, "Maintenance", tree[0].Category.Name)
	assert.Equal(t, "Repairs", tree[1].Category.Name)

	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "Engine", tree[1].Children[0].Category.Name)
	require.Len(t, tree[1].Children[0].Children, 1)
	assert.Equal(t, "Timing belt", tree[1].Children[0].Children[0].Category.Name)
}

func TestCategoryTreeStopsAtDepthCap(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	catalog := NewCatalogService(db)

	// A four-level chain; the fourth level must be cut off.
	level1 := seedCategory(t, db, tenant.ID, "Level 1", nil)
	level2 := seedCategory(t, db, tenant.ID, "Level 2", &level1.ID)
	level3 := seedCategory(t, db, tenant.ID, "Level 3", &level2.ID)
	seedCategory(t, db, tenant.ID, "Level 4", &level3.ID)

	tree, err := catalog.CategoryTree(tenant.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	second := tree[0].Children
	require.Len(t, second, 1)
	third := second[0].Children
	require.Len(t, third, 1)
	assert.Empty(t, third[0].Children)
}

func TestCategoryTreeSkipsInactive(t *testing.T) {
	db := newServiceDBForTest(t)
	tenant := seedTenant(t, db, nil)
	catalog := NewCatalogService(db)

	root := seedCategory(t, db, tenant.ID, "Visible", nil)
	hidden := seedCategory(t, db, tenant.ID, "Hidden", &root.ID)
	require.NoError(t, db.Model(&models.Category{}).Where("id = ?", hidden.ID).
		Update("is_active", false).Error)

	tree, err := catalog.CategoryTree(tenant.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Empty(t, tree[0].Children)
}
