package controllers

import (
	"net/http"
	"strconv"

	"hr-review-api/services"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications; ?unread_only=true
// restricts to unread.
func GetNotifications(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	unreadOnly := c.Query("unread_only") == "true"

	svc := services.NewNotificationService(getDB())
	notifications, err := svc.List(caller.UserID, unreadOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	unread, err := svc.UnreadCount(caller.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
		"total":         len(notifications),
		"unread_count":  unread,
	})
}

// MarkNotificationRead flips one notification's read flag.
func MarkNotificationRead(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || notificationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := services.NewNotificationService(getDB()).MarkRead(caller, notificationID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead flips every unread notification of the caller.
func MarkAllNotificationsRead(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	if err := services.NewNotificationService(getDB()).MarkAllRead(caller.UserID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
