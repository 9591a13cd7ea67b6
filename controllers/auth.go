package controllers

import (
	"errors"
	"net/http"
	"time"

	"quotepro-backend/models"
	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
	TenantName    string `json:"tenantName" binding:"required"`
	TenantAddress string `json:"tenantAddress"`
}

type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"` // email or phone
	Password   string `json:"password" binding:"required"`
}

type AuthController struct {
	DB *gorm.DB
}

// Register creates a tenant and its owner user
func (ctl *AuthController) Register(c *gin.Context) {
	var input RegisterInput

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Check if email or phone already exists
	var existingUser models.User
	result := ctl.DB.Where("email = ? OR phone = ?", input.Email, input.Phone).First(&existingUser)

	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email or phone already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var newUser models.User
	err := ctl.DB.Transaction(func(tx *gorm.DB) error {
		tenant := models.Tenant{
			ID:      uuid.New(),
			Name:    input.TenantName,
			Address: input.TenantAddress,
			Settings: models.JSONB{
				"number_prefix": models.DefaultNumberPrefix,
			},
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		newUser = models.User{
			Email:    input.Email,
			Phone:    input.Phone,
			Name:     input.Name,
			Password: input.Password, // hashed in BeforeCreate hook
			Role:     "owner",
			TenantID: tenant.ID,
			IsActive: true,
		}
		return tx.Create(&newUser).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := utils.GenerateToken(newUser.ID.String(), newUser.TenantID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user": gin.H{
			"id":         newUser.ID,
			"email":      newUser.Email,
			"phone":      newUser.Phone,
			"tenantId":   newUser.TenantID,
			"tenantName": input.TenantName,
		},
	})
}

func (ctl *AuthController) Login(c *gin.Context) {
	var input LoginInput

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := ctl.DB.Where("email = ? OR phone = ?", input.Identifier, input.Identifier).
		First(&user).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		utils.RespondWithError(c, http.StatusUnauthorized, "Account is disabled")
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.TenantID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	now := time.Now()
	ctl.DB.Model(&user).Update("last_login", now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"name":     user.Name,
			"tenantId": user.TenantID,
		},
	})
}

func (ctl *AuthController) Me(c *gin.Context) {
	userID, ok := userFromContext(c)
	if !ok {
		return
	}

	var user models.User
	if err := ctl.DB.Preload("Tenant").First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"phone":    user.Phone,
		"role":     user.Role,
		"tenantId": user.TenantID,
		"tenant": gin.H{
			"name":    user.Tenant.Name,
			"address": user.Tenant.Address,
		},
	})
}
