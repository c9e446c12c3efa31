package controllers

import (
	"errors"
	"log"
	"net/http"

	"hr-review-api/config"
	"hr-review-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func getDB() *gorm.DB { return config.DB }

// currentCaller builds the caller identity from the auth middleware context.
func currentCaller(c *gin.Context) (services.Caller, bool) {
	userIDVal, userOK := c.Get("userID")
	roleIDVal, roleOK := c.Get("roleID")
	if !userOK || !roleOK {
		return services.Caller{}, false
	}

	userID, okUser := userIDVal.(int)
	roleID, okRole := roleIDVal.(int)
	if !okUser || !okRole {
		return services.Caller{}, false
	}
	return services.Caller{UserID: userID, RoleID: roleID}, true
}

// respondServiceError translates the engine's typed errors to HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		permissionErr *services.PermissionError
		stateErr      *services.InvalidStateError
		lockedErr     *services.CycleLockedError
		notActiveErr  *services.CycleNotActiveError
		noAssignErr   *services.AssignmentNotFoundError
		incompleteErr *services.IncompleteFormError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": notFoundErr.Error()})
	case errors.As(err, &noAssignErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": noAssignErr.Error()})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": permissionErr.Error()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": stateErr.Error()})
	case errors.As(err, &lockedErr):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": lockedErr.Error()})
	case errors.As(err, &notActiveErr):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": notActiveErr.Error()})
	case errors.As(err, &incompleteErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":        false,
			"error":          incompleteErr.Error(),
			"missing_fields": incompleteErr.Missing,
		})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
