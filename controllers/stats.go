package controllers

import (
	"net/http"
	"strconv"

	"hr-review-api/services"

	"github.com/gin-gonic/gin"
)

// GetStats returns the role-segmented dashboard: staff get the organisation
// rollup, everyone else their own numbers. ?cycle_id= restricts to one cycle.
func GetStats(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	cycleID, _ := strconv.Atoi(c.Query("cycle_id"))
	svc := services.NewStatsService(getDB())

	if caller.IsStaff() {
		stats, err := svc.GetAdminStats(cycleID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
		return
	}

	stats, err := svc.GetIndividualStats(caller.UserID, cycleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
