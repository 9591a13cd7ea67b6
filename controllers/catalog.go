package controllers

import (
	"errors"
	"net/http"

	"quotepro-backend/models"
	"quotepro-backend/services"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateCatalogItemInput struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	UnitPriceCents int64           `json:"unitPriceCents" binding:"required,min=0"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	Unit           string          `json:"unit"`
	CategoryID     *uuid.UUID      `json:"categoryId"`
}

type UpdateCatalogItemInput struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	UnitPriceCents *int64           `json:"unitPriceCents"`
	TaxRate        *decimal.Decimal `json:"taxRate"`
	Unit           *string          `json:"unit"`
	CategoryID     *uuid.UUID       `json:"categoryId"`
	IsActive       *bool            `json:"isActive"`
}

type CreateCategoryInput struct {
	Name     string     `json:"name" binding:"required"`
	ParentID *uuid.UUID `json:"parentId"`
}

type CatalogController struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
}

// CreateItem adds a catalog item to the tenant's catalog
func (ctl *CatalogController) CreateItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var input CreateCatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	item := models.CatalogItem{
		ID:             uuid.New(),
		TenantID:       tenantUUID,
		CategoryID:     input.CategoryID,
		Name:           input.Name,
		Description:    input.Description,
		UnitPriceCents: input.UnitPriceCents,
		TaxRate:        input.TaxRate,
		Unit:           input.Unit,
		IsActive:       true,
	}
	if item.Unit == "" {
		item.Unit = "pcs"
	}

	if err := ctl.DB.Create(&item).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create catalog item")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// GetItems retrieves all catalog items for the tenant
func (ctl *CatalogController) GetItems(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var items []models.CatalogItem
	if err := ctl.DB.Where("tenant_id = ?", tenantUUID).Order("name").Find(&items).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve catalog items")
		return
	}

	c.JSON(http.StatusOK, items)
}

// UpdateItem updates a catalog item. Existing quotes are unaffected: every
// quote line keeps its own snapshot of price, tax and unit.
func (ctl *CatalogController) UpdateItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	itemUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input UpdateCatalogItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var item models.CatalogItem
	if err := ctl.DB.Where("tenant_id = ? AND id = ?", tenantUUID, itemUUID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Catalog item not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.UnitPriceCents != nil {
		item.UnitPriceCents = *input.UnitPriceCents
	}
	if input.TaxRate != nil {
		item.TaxRate = *input.TaxRate
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.CategoryID != nil {
		item.CategoryID = input.CategoryID
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	if err := ctl.DB.Save(&item).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update catalog item")
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem soft deletes a catalog item
func (ctl *CatalogController) DeleteItem(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	itemUUID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result := ctl.DB.Where("tenant_id = ? AND id = ?", tenantUUID, itemUUID).
		Delete(&models.CatalogItem{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete catalog item")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Catalog item not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Catalog item deleted successfully"})
}

// CreateCategory adds a category node
func (ctl *CatalogController) CreateCategory(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	var input CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	category := models.Category{
		ID:       uuid.New(),
		TenantID: tenantUUID,
		ParentID: input.ParentID,
		Name:     input.Name,
		IsActive: true,
	}
	if err := ctl.DB.Create(&category).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategoryTree returns the tenant's category tree, capped at three levels
func (ctl *CatalogController) GetCategoryTree(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	tree, err := ctl.Catalog.CategoryTree(tenantUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	c.JSON(http.StatusOK, tree)
}
