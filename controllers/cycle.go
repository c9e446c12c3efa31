package controllers

import (
	"net/http"
	"strconv"
	"time"

	"hr-review-api/services"

	"github.com/gin-gonic/gin"
)

type cycleRequest struct {
	CycleName string `json:"cycle_name" binding:"required"`
	CycleType string `json:"cycle_type" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   string `json:"end_date" binding:"required"`
	Status    string `json:"status"`
}

// CreateCycle creates a review cycle. Admin/HR only (route-enforced).
func CreateCycle(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	var req cycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	cycle, err := services.NewCycleService(getDB()).CreateCycle(caller, services.CreateCycleInput{
		CycleName: req.CycleName,
		CycleType: req.CycleType,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "cycle": cycle})
}

// GetCycles lists cycles, optionally filtered by status.
func GetCycles(c *gin.Context) {
	cycles, err := services.NewCycleService(getDB()).ListCycles(c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cycles": cycles, "total": len(cycles)})
}

// GetCycle returns one cycle with its progress counts.
func GetCycle(c *gin.Context) {
	cycleID, err := strconv.Atoi(c.Param("id"))
	if err != nil || cycleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cycle ID"})
		return
	}

	progress, err := services.NewCycleService(getDB()).GetCycleProgress(cycleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cycle": progress.Cycle, "progress": progress})
}

func cycleTransitionHandler(transition func(*services.CycleService, int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		cycleID, err := strconv.Atoi(c.Param("id"))
		if err != nil || cycleID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cycle ID"})
			return
		}

		if err := transition(services.NewCycleService(getDB()), cycleID); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ActivateCycle moves a draft cycle to active.
var ActivateCycle = cycleTransitionHandler(func(s *services.CycleService, id int) error {
	_, err := s.ActivateCycle(id)
	return err
})

// LockCycle freezes form writes for the cycle.
var LockCycle = cycleTransitionHandler(func(s *services.CycleService, id int) error {
	_, err := s.LockCycle(id)
	return err
})

// ReopenCycle moves a locked cycle back to active.
var ReopenCycle = cycleTransitionHandler(func(s *services.CycleService, id int) error {
	_, err := s.ReopenCycle(id)
	return err
})

// CompleteCycle closes the cycle and notifies its employees.
var CompleteCycle = cycleTransitionHandler(func(s *services.CycleService, id int) error {
	_, err := s.CompleteCycle(id)
	return err
})

// DeleteCycle removes a cycle and its dependents. Admin only.
func DeleteCycle(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	cycleID, err := strconv.Atoi(c.Param("id"))
	if err != nil || cycleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cycle ID"})
		return
	}

	if err := services.NewCycleService(getDB()).DeleteCycle(caller, cycleID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cycle deleted"})
}
