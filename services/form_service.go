package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"hr-review-api/models"

	"gorm.io/gorm"
)

// FormService owns the review form lifecycle: upsert-on-write saves, rating
// derivation, the submission completeness gate, and the side effects of a
// first submission (assignment completion, notification fan-out).
type FormService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewFormService(db *gorm.DB) *FormService {
	return &FormService{db: db, notifications: NewNotificationService(db)}
}

// FormInput is a merge patch: nil fields keep whatever the stored form
// already has. The tuple fields identify the form.
type FormInput struct {
	CycleID            int                 `json:"cycle_id"`
	EmployeeID         int                 `json:"employee_id"`
	ReviewerID         int                 `json:"reviewer_id"`
	ReviewerType       string              `json:"reviewer_type"`
	OverallRating      *int                `json:"overall_rating"`
	GoalsAchievement   *string             `json:"goals_achievement"`
	Strengths          *string             `json:"strengths"`
	Improvements       *string             `json:"improvements"`
	AdditionalComments *string             `json:"additional_comments"`
	KPIScores          models.KPIScoreList `json:"kpi_scores"`
}

// SaveFormResult carries the saved form plus a non-fatal warning when the
// mandatory post-commit employee notification failed.
type SaveFormResult struct {
	Form    *models.ReviewForm `json:"form"`
	Warning string             `json:"warning,omitempty"`
}

// DeriveOverallRating computes round-half-up(mean) over the in-range scores.
// Out-of-range entries are skipped, not rejected. The second return is false
// when no valid score remains.
func DeriveOverallRating(scores models.KPIScoreList) (int, bool) {
	sum, n := 0, 0
	for _, s := range scores {
		if s.Score >= 1 && s.Score <= 5 {
			sum += s.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	mean := float64(sum) / float64(n)
	return int(math.Floor(mean + 0.5)), true
}

// SaveForm creates or updates the form for the input's tuple.
//
// The whole read-check-write sequence runs in one transaction keyed by the
// unique tuple index, so racing saves serialize and cycle status is the value
// at commit time, not at handler entry. Notifications go out after commit.
func (s *FormService) SaveForm(caller Caller, input FormInput, requestedStatus string) (*SaveFormResult, error) {
	if requestedStatus == "" {
		requestedStatus = models.FormStatusDraft
	}
	if requestedStatus != models.FormStatusDraft && requestedStatus != models.FormStatusSubmitted {
		return nil, &ValidationError{Msg: "status must be draft or submitted"}
	}
	if !models.ValidReviewerType(input.ReviewerType) {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid reviewer_type %q", input.ReviewerType)}
	}
	if input.OverallRating != nil && (*input.OverallRating < 1 || *input.OverallRating > 5) {
		return nil, &ValidationError{Msg: "overall_rating must be between 1 and 5"}
	}

	var (
		form           models.ReviewForm
		newlySubmitted bool
		isDraftSave    bool
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cycle models.ReviewCycle
		if err := tx.Where("cycle_id = ?", input.CycleID).First(&cycle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "cycle", ID: input.CycleID}
			}
			return err
		}
		if !cycle.IsWritable() {
			return &CycleLockedError{CycleID: cycle.CycleID, Status: cycle.Status}
		}

		assignment, err := findAssignmentTx(tx, input.CycleID, input.EmployeeID, input.ReviewerID, input.ReviewerType)
		if err != nil {
			return err
		}

		if caller.UserID != assignment.ReviewerID && !caller.IsStaff() {
			return &PermissionError{Msg: "only the assigned reviewer or hr/admin staff can write this form"}
		}

		var existing *models.ReviewForm
		var row models.ReviewForm
		err = tx.Where("cycle_id = ? AND employee_id = ? AND reviewer_id = ? AND reviewer_type = ?",
			input.CycleID, input.EmployeeID, input.ReviewerID, input.ReviewerType).
			First(&row).Error
		switch {
		case err == nil:
			existing = &row
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if existing != nil && existing.Status == models.FormStatusApproved {
			return &InvalidStateError{Msg: "an approved form can no longer be edited"}
		}

		// Rating derivation: KPI scores fill overall_rating only when the
		// caller did not supply one explicitly.
		effectiveRating := input.OverallRating
		if effectiveRating == nil && input.KPIScores != nil {
			if derived, ok := DeriveOverallRating(input.KPIScores); ok {
				effectiveRating = &derived
			}
		}

		// Merge the patch onto the stored row (in memory first; the gate
		// below must see the post-merge values and persist nothing on
		// failure).
		merged := models.ReviewForm{
			CycleID:      input.CycleID,
			EmployeeID:   input.EmployeeID,
			ReviewerID:   input.ReviewerID,
			ReviewerType: input.ReviewerType,
		}
		if existing != nil {
			merged = *existing
		}
		if effectiveRating != nil {
			merged.OverallRating = effectiveRating
		}
		if input.GoalsAchievement != nil {
			merged.GoalsAchievement = input.GoalsAchievement
		}
		if input.Strengths != nil {
			merged.Strengths = input.Strengths
		}
		if input.Improvements != nil {
			merged.Improvements = input.Improvements
		}
		if input.AdditionalComments != nil {
			merged.AdditionalComments = input.AdditionalComments
		}
		if input.KPIScores != nil {
			merged.KPIScores = input.KPIScores
		}

		// Once submitted, a form never drops back to draft; later saves
		// update content only.
		wasSubmitted := existing != nil && existing.Status == models.FormStatusSubmitted
		targetStatus := requestedStatus
		if wasSubmitted {
			targetStatus = models.FormStatusSubmitted
		}

		if targetStatus == models.FormStatusSubmitted {
			var missing []string
			if merged.OverallRating == nil {
				missing = append(missing, "overall_rating")
			}
			if merged.GoalsAchievement == nil || strings.TrimSpace(*merged.GoalsAchievement) == "" {
				missing = append(missing, "goals_achievement")
			}
			if merged.Strengths == nil || strings.TrimSpace(*merged.Strengths) == "" {
				missing = append(missing, "strengths")
			}
			if merged.Improvements == nil || strings.TrimSpace(*merged.Improvements) == "" {
				missing = append(missing, "improvements")
			}
			if len(missing) > 0 {
				return &IncompleteFormError{Missing: missing}
			}
		}

		now := time.Now()
		merged.Status = targetStatus
		merged.UpdateAt = now
		newlySubmitted = targetStatus == models.FormStatusSubmitted && !wasSubmitted
		isDraftSave = targetStatus == models.FormStatusDraft

		if newlySubmitted {
			merged.SubmittedAt = &now
		}

		if existing == nil {
			merged.CreateAt = now
			if err := tx.Create(&merged).Error; err != nil {
				return err
			}
		} else {
			updates := map[string]interface{}{
				"status":    merged.Status,
				"update_at": now,
			}
			if effectiveRating != nil {
				updates["overall_rating"] = *effectiveRating
			}
			if input.GoalsAchievement != nil {
				updates["goals_achievement"] = *input.GoalsAchievement
			}
			if input.Strengths != nil {
				updates["strengths"] = *input.Strengths
			}
			if input.Improvements != nil {
				updates["improvements"] = *input.Improvements
			}
			if input.AdditionalComments != nil {
				updates["additional_comments"] = *input.AdditionalComments
			}
			if input.KPIScores != nil {
				updates["kpi_scores"] = input.KPIScores
			}
			if newlySubmitted {
				updates["submitted_at"] = now
			}
			if err := tx.Model(&models.ReviewForm{}).
				Where("form_id = ?", merged.FormID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		if newlySubmitted {
			if err := markCompletedTx(tx, input.CycleID, input.EmployeeID, input.ReviewerID, input.ReviewerType); err != nil {
				return err
			}
		}

		form = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SaveFormResult{Form: &form}

	// Fan-out happens outside the transaction so a notification failure can
	// never roll back the committed save.
	if newlySubmitted {
		if err := s.notifications.NotifyWithEmail(form.EmployeeID, models.NotificationReviewSubmitted,
			"Review Submitted",
			fmt.Sprintf("A %s review about you has been submitted.", form.ReviewerType),
			&form.FormID); err != nil {
			result.Warning = "form saved but the employee notification could not be recorded"
		}

		if form.ReviewerType == models.ReviewerTypeManager {
			s.notifications.BroadcastToStaff(models.NotificationReviewSubmitted,
				"Manager Review Submitted",
				fmt.Sprintf("A manager review for employee %d has been submitted.", form.EmployeeID),
				&form.FormID)
		}
	} else if isDraftSave {
		s.notifications.NotifyBestEffort(form.ReviewerID, models.NotificationDraftSaved,
			"Draft Saved",
			"Your review draft has been saved.",
			&form.FormID)
	}

	return result, nil
}

// GetForm fetches one form with display relations. Staff see everything;
// other callers must be the reviewer or the employee.
func (s *FormService) GetForm(caller Caller, formID int) (*models.ReviewForm, error) {
	var form models.ReviewForm
	err := s.db.Preload("Cycle").Preload("Employee").Preload("Reviewer").
		Where("form_id = ?", formID).First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "form", ID: formID}
		}
		return nil, err
	}

	if !caller.IsStaff() && caller.UserID != form.ReviewerID && caller.UserID != form.EmployeeID {
		return nil, &PermissionError{Msg: "you do not have access to this review form"}
	}
	return &form, nil
}

// FormFilters narrows ListForms; zero values mean "no filter".
type FormFilters struct {
	CycleID      int
	EmployeeID   int
	ReviewerID   int
	Status       string
	ReviewerType string
}

// ListForms applies the filters for staff; everyone else is additionally
// restricted to forms where they are the reviewer or the employee.
func (s *FormService) ListForms(caller Caller, filters FormFilters) ([]models.ReviewForm, error) {
	query := s.db.Model(&models.ReviewForm{}).Preload("Cycle")

	if filters.CycleID > 0 {
		query = query.Where("cycle_id = ?", filters.CycleID)
	}
	if filters.EmployeeID > 0 {
		query = query.Where("employee_id = ?", filters.EmployeeID)
	}
	if filters.ReviewerID > 0 {
		query = query.Where("reviewer_id = ?", filters.ReviewerID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ReviewerType != "" {
		query = query.Where("reviewer_type = ?", filters.ReviewerType)
	}
	if !caller.IsStaff() {
		query = query.Where("reviewer_id = ? OR employee_id = ?", caller.UserID, caller.UserID)
	}

	var forms []models.ReviewForm
	if err := query.Order("update_at DESC, form_id DESC").Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// ApproveForm moves a submitted form to the terminal approved state. Staff
// only.
func (s *FormService) ApproveForm(caller Caller, formID int) (*models.ReviewForm, error) {
	if !caller.IsStaff() {
		return nil, &PermissionError{Msg: "only hr/admin staff can approve a review form"}
	}

	var form models.ReviewForm
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", formID).First(&form).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "form", ID: formID}
			}
			return err
		}
		if form.Status != models.FormStatusSubmitted {
			return &InvalidStateError{Msg: "only a submitted form can be approved"}
		}

		now := time.Now()
		form.Status = models.FormStatusApproved
		form.UpdateAt = now
		return tx.Model(&models.ReviewForm{}).
			Where("form_id = ?", formID).
			Updates(map[string]interface{}{"status": models.FormStatusApproved, "update_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// DeleteForm removes a form. Admin only.
func (s *FormService) DeleteForm(caller Caller, formID int) error {
	if !caller.IsAdmin() {
		return &PermissionError{Msg: "only an admin can delete a review form"}
	}

	var form models.ReviewForm
	if err := s.db.Where("form_id = ?", formID).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "form", ID: formID}
		}
		return err
	}
	return s.db.Delete(&form).Error
}
