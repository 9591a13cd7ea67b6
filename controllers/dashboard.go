package controllers

import (
	"net/http"
	"time"

	"quotepro-backend/models"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB *gorm.DB
}

// GetDashboardOverview returns quote counts by status and this month's
// accepted volume
func (ctl *DashboardController) GetDashboardOverview(c *gin.Context) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := ctl.DB.Model(&models.Quote{}).
		Select("status, COUNT(*) as count").
		Where("tenant_id = ?", tenantUUID).
		Group("status").
		Scan(&counts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	byStatus := gin.H{}
	for _, row := range counts {
		byStatus[row.Status] = row.Count
	}

	monthStart := utils.BeginningOfDay(time.Now().AddDate(0, 0, -time.Now().Day()+1))
	var acceptedCents int64
	if err := ctl.DB.Model(&models.Quote{}).
		Select("COALESCE(SUM(total_cents), 0)").
		Where("tenant_id = ? AND status = ? AND quote_date >= ?",
			tenantUUID, models.QuoteStatusAccepted, monthStart).
		Scan(&acceptedCents).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	var receiptCount int64
	if err := ctl.DB.Model(&models.Receipt{}).
		Where("tenant_id = ?", tenantUUID).
		Count(&receiptCount).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quotesByStatus":         byStatus,
		"acceptedThisMonthCents": acceptedCents,
		"receiptsIssued":         receiptCount,
	})
}
