package controllers

import (
	"net/http"
	"strconv"
	"time"

	"hr-review-api/services"

	"github.com/gin-gonic/gin"
)

type assignReviewersRequest struct {
	CycleID    int                    `json:"cycle_id" binding:"required"`
	EmployeeID int                    `json:"employee_id" binding:"required"`
	Reviewers  []services.ReviewerRef `json:"reviewers" binding:"required"`
}

// AssignReviewers bulk-assigns reviewers to an employee. Admin/HR only
// (route-enforced).
func AssignReviewers(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	var req assignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignments, err := services.NewAssignmentService(getDB()).
		AssignReviewers(caller, req.CycleID, req.EmployeeID, req.Reviewers)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// GetAssignments lists assignments visible to the caller.
func GetAssignments(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	cycleID, _ := strconv.Atoi(c.Query("cycle_id"))

	assignments, err := services.NewAssignmentService(getDB()).ListAssignments(caller, cycleID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// SweepOverdueAssignments marks pending assignments in expired cycles as
// overdue. Admin/HR only (route-enforced); meant to be hit by an external
// cron.
func SweepOverdueAssignments(c *gin.Context) {
	flipped, err := services.NewAssignmentService(getDB()).SweepOverdue(time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "marked_overdue": flipped})
}
