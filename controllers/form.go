package controllers

import (
	"net/http"
	"strconv"

	"hr-review-api/services"

	"github.com/gin-gonic/gin"
)

type saveFormRequest struct {
	services.FormInput
	Status string `json:"status"`
}

// SaveForm creates or updates the review form for the request's tuple.
func SaveForm(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	var req saveFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := services.NewFormService(getDB()).SaveForm(caller, req.FormInput, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response := gin.H{"success": true, "form": result.Form}
	if result.Warning != "" {
		response["warning"] = result.Warning
	}
	c.JSON(http.StatusOK, response)
}

// GetForm fetches one form by id, subject to the read access rules.
func GetForm(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form ID"})
		return
	}

	form, err := services.NewFormService(getDB()).GetForm(caller, formID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "form": form})
}

// GetForms lists forms visible to the caller, with optional filters.
func GetForms(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	cycleID, _ := strconv.Atoi(c.Query("cycle_id"))
	employeeID, _ := strconv.Atoi(c.Query("employee_id"))
	reviewerID, _ := strconv.Atoi(c.Query("reviewer_id"))

	forms, err := services.NewFormService(getDB()).ListForms(caller, services.FormFilters{
		CycleID:      cycleID,
		EmployeeID:   employeeID,
		ReviewerID:   reviewerID,
		Status:       c.Query("status"),
		ReviewerType: c.Query("reviewer_type"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "forms": forms, "total": len(forms)})
}

// ApproveForm marks a submitted form approved. Admin/HR only
// (route-enforced).
func ApproveForm(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form ID"})
		return
	}

	form, err := services.NewFormService(getDB()).ApproveForm(caller, formID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "form": form})
}

// DeleteForm removes a form. Admin only.
func DeleteForm(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication context missing"})
		return
	}

	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form ID"})
		return
	}

	if err := services.NewFormService(getDB()).DeleteForm(caller, formID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Form deleted"})
}
