package services

import (
	"errors"
	"strings"
	"time"

	"hr-review-api/models"

	"gorm.io/gorm"
)

// CycleService owns the review cycle lifecycle:
// draft -> active -> locked -> completed, with an explicit locked -> active
// reopen. Forms and assignments are only writable while the cycle is draft or
// active.
type CycleService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewCycleService(db *gorm.DB) *CycleService {
	return &CycleService{db: db, notifications: NewNotificationService(db)}
}

type CreateCycleInput struct {
	CycleName string    `json:"cycle_name"`
	CycleType string    `json:"cycle_type"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

func (s *CycleService) CreateCycle(caller Caller, input CreateCycleInput) (*models.ReviewCycle, error) {
	name := strings.TrimSpace(input.CycleName)
	if name == "" {
		return nil, &ValidationError{Msg: "cycle_name is required"}
	}
	if !models.ValidCycleType(input.CycleType) {
		return nil, &ValidationError{Msg: "cycle_type must be six_month or one_year"}
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, &ValidationError{Msg: "start_date must be before end_date"}
	}

	status := input.Status
	if status == "" {
		status = models.CycleStatusDraft
	}
	if status != models.CycleStatusDraft && status != models.CycleStatusActive {
		return nil, &ValidationError{Msg: "a cycle can only be created as draft or active"}
	}

	now := time.Now()
	cycle := models.ReviewCycle{
		CycleName: name,
		CycleType: input.CycleType,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Status:    status,
		CreatedBy: caller.UserID,
		CreateAt:  now,
		UpdateAt:  now,
	}
	if err := s.db.Create(&cycle).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

// ActivateCycle moves a draft cycle to active.
func (s *CycleService) ActivateCycle(cycleID int) (*models.ReviewCycle, error) {
	return s.transition(cycleID, func(cycle *models.ReviewCycle) error {
		if cycle.Status == models.CycleStatusActive {
			return nil
		}
		if cycle.Status != models.CycleStatusDraft {
			return &InvalidStateError{Msg: "only a draft cycle can be activated"}
		}
		cycle.Status = models.CycleStatusActive
		return nil
	})
}

// LockCycle freezes form writes for the cycle. Locking an already locked
// cycle is a no-op; a completed cycle cannot be locked.
func (s *CycleService) LockCycle(cycleID int) (*models.ReviewCycle, error) {
	return s.transition(cycleID, func(cycle *models.ReviewCycle) error {
		if cycle.Status == models.CycleStatusLocked {
			return nil
		}
		if cycle.Status == models.CycleStatusCompleted {
			return &InvalidStateError{Msg: "a completed cycle cannot be locked"}
		}
		cycle.Status = models.CycleStatusLocked
		return nil
	})
}

// ReopenCycle moves a locked cycle back to active. No other source state is
// allowed.
func (s *CycleService) ReopenCycle(cycleID int) (*models.ReviewCycle, error) {
	return s.transition(cycleID, func(cycle *models.ReviewCycle) error {
		if cycle.Status != models.CycleStatusLocked {
			return &InvalidStateError{Msg: "only a locked cycle can be reopened"}
		}
		cycle.Status = models.CycleStatusActive
		return nil
	})
}

// CompleteCycle is the terminal transition. Employees with assignments in the
// cycle are notified; notification failures do not roll back the transition.
func (s *CycleService) CompleteCycle(cycleID int) (*models.ReviewCycle, error) {
	cycle, err := s.transition(cycleID, func(cycle *models.ReviewCycle) error {
		if cycle.Status == models.CycleStatusCompleted {
			return nil
		}
		if cycle.Status != models.CycleStatusActive && cycle.Status != models.CycleStatusLocked {
			return &InvalidStateError{Msg: "only an active or locked cycle can be completed"}
		}
		cycle.Status = models.CycleStatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	var employeeIDs []int
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("cycle_id = ?", cycleID).
		Distinct().
		Pluck("employee_id", &employeeIDs).Error; err == nil {
		for _, employeeID := range employeeIDs {
			s.notifications.NotifyBestEffort(employeeID, models.NotificationCycleCompleted,
				"Review Cycle Completed",
				"The review cycle \""+cycle.CycleName+"\" has been completed.",
				&cycle.CycleID)
		}
	}

	return cycle, nil
}

// DeleteCycle removes a cycle together with its assignments and forms in one
// transaction. Notifications are kept as history. Admin only.
func (s *CycleService) DeleteCycle(caller Caller, cycleID int) error {
	if !caller.IsAdmin() {
		return &PermissionError{Msg: "only an admin can delete a review cycle"}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var cycle models.ReviewCycle
		if err := tx.Where("cycle_id = ?", cycleID).First(&cycle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "cycle", ID: cycleID}
			}
			return err
		}

		if err := tx.Where("cycle_id = ?", cycleID).Delete(&models.ReviewForm{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cycle_id = ?", cycleID).Delete(&models.ReviewerAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cycle).Error
	})
}

func (s *CycleService) GetCycle(cycleID int) (*models.ReviewCycle, error) {
	var cycle models.ReviewCycle
	if err := s.db.Where("cycle_id = ?", cycleID).First(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "cycle", ID: cycleID}
		}
		return nil, err
	}
	return &cycle, nil
}

// CycleProgress pairs a cycle with its assignment and form counts.
type CycleProgress struct {
	Cycle                models.ReviewCycle `json:"cycle"`
	TotalAssignments     int64              `json:"total_assignments"`
	CompletedAssignments int64              `json:"completed_assignments"`
	SubmittedForms       int64              `json:"submitted_forms"`
}

func (s *CycleService) GetCycleProgress(cycleID int) (*CycleProgress, error) {
	cycle, err := s.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}

	progress := CycleProgress{Cycle: *cycle}
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("cycle_id = ?", cycleID).
		Count(&progress.TotalAssignments).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.AssignmentStatusCompleted).
		Count(&progress.CompletedAssignments).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ReviewForm{}).
		Where("cycle_id = ? AND status IN ?", cycleID,
			[]string{models.FormStatusSubmitted, models.FormStatusApproved}).
		Count(&progress.SubmittedForms).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListCycles returns cycles newest first, optionally filtered by status.
func (s *CycleService) ListCycles(status string) ([]models.ReviewCycle, error) {
	query := s.db.Model(&models.ReviewCycle{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var cycles []models.ReviewCycle
	if err := query.Order("start_date DESC, cycle_id DESC").Find(&cycles).Error; err != nil {
		return nil, err
	}
	return cycles, nil
}

func (s *CycleService) transition(cycleID int, apply func(*models.ReviewCycle) error) (*models.ReviewCycle, error) {
	var cycle models.ReviewCycle
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cycle_id = ?", cycleID).First(&cycle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "cycle", ID: cycleID}
			}
			return err
		}

		before := cycle.Status
		if err := apply(&cycle); err != nil {
			return err
		}
		if cycle.Status == before {
			return nil
		}

		cycle.UpdateAt = time.Now()
		return tx.Model(&models.ReviewCycle{}).
			Where("cycle_id = ?", cycleID).
			Updates(map[string]interface{}{
				"status":    cycle.Status,
				"update_at": cycle.UpdateAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}
