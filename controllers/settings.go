package controllers

import (
	"net/http"

	"quotepro-backend/models"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateSettingsInput struct {
	NumberPrefix   *string  `json:"numberPrefix"`
	DefaultTaxRate *float64 `json:"defaultTaxRate"`
	RetentionYears *int     `json:"retentionYears"`
}

type RotateSecretInput struct {
	Version string `json:"version" binding:"required"`
	Secret  string `json:"secret" binding:"required,min=32"`
}

type SettingsController struct {
	DB *gorm.DB
}

func (ctl *SettingsController) loadTenant(c *gin.Context) (*models.Tenant, bool) {
	tenantUUID, ok := tenantFromContext(c)
	if !ok {
		return nil, false
	}
	var tenant models.Tenant
	if err := ctl.DB.First(&tenant, "id = ?", tenantUUID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Tenant not found")
		return nil, false
	}
	return &tenant, true
}

// GetSettings returns the tenant's document settings. Signing secrets are
// never included; only the version labels are exposed.
func (ctl *SettingsController) GetSettings(c *gin.Context) {
	tenant, ok := ctl.loadTenant(c)
	if !ok {
		return
	}

	versions := make([]string, 0)
	for version := range tenant.SigningSecrets() {
		versions = append(versions, version)
	}

	c.JSON(http.StatusOK, gin.H{
		"name":                tenant.Name,
		"address":             tenant.Address,
		"numberPrefix":        tenant.NumberPrefix(),
		"defaultTaxRate":      tenant.DefaultTaxRate(),
		"retentionYears":      tenant.RetentionYears(),
		"secretVersions":      versions,
		"activeSecretVersion": tenant.ActiveSecretVersion(),
	})
}

// UpdateSettings changes document defaults. The number prefix only affects
// counters created after the change; existing (tenant, year) counters keep
// the prefix they were created with.
func (ctl *SettingsController) UpdateSettings(c *gin.Context) {
	tenant, ok := ctl.loadTenant(c)
	if !ok {
		return
	}

	var input UpdateSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if tenant.Settings == nil {
		tenant.Settings = models.JSONB{}
	}
	if input.NumberPrefix != nil && *input.NumberPrefix != "" {
		tenant.Settings["number_prefix"] = *input.NumberPrefix
	}
	if input.DefaultTaxRate != nil {
		tenant.Settings["default_tax_rate"] = *input.DefaultTaxRate
	}
	if input.RetentionYears != nil && *input.RetentionYears > 0 {
		tenant.Settings["retention_years"] = float64(*input.RetentionYears)
	}

	if err := ctl.DB.Save(tenant).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

// RotateSecret registers a new signing secret version and makes it active.
// Previous versions stay in the map so receipts signed under them keep
// verifying.
func (ctl *SettingsController) RotateSecret(c *gin.Context) {
	tenant, ok := ctl.loadTenant(c)
	if !ok {
		return
	}

	var input RotateSecretInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if tenant.Settings == nil {
		tenant.Settings = models.JSONB{}
	}
	secrets, ok := tenant.Settings["signing_secrets"].(map[string]interface{})
	if !ok {
		secrets = map[string]interface{}{}
	}
	if _, exists := secrets[input.Version]; exists {
		utils.RespondWithError(c, http.StatusConflict, "Secret version already exists")
		return
	}
	secrets[input.Version] = input.Secret
	tenant.Settings["signing_secrets"] = secrets
	tenant.Settings["active_secret_version"] = input.Version

	if err := ctl.DB.Save(tenant).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to rotate secret")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Secret rotated",
		"activeSecretVersion": input.Version,
	})
}
