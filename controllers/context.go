package controllers

import (
	"net/http"

	"quotepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// tenantFromContext pulls the authenticated tenant id out of the JWT claims
// placed in the gin context. Responds 401/500 itself on failure.
func tenantFromContext(c *gin.Context) (uuid.UUID, bool) {
	tenantID, exists := c.Get("tenantId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Tenant ID not found in context")
		return uuid.Nil, false
	}
	tenantUUID, err := uuid.Parse(tenantID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid tenant ID format")
		return uuid.Nil, false
	}
	return tenantUUID, true
}

func userFromContext(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	userUUID, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userUUID, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
