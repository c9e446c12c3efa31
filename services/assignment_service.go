package services

import (
	"errors"
	"fmt"
	"time"

	"hr-review-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentService creates and tracks reviewer assignments. An assignment is
// the only thing that authorizes a reviewer to write a form for an employee.
type AssignmentService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db, notifications: NewNotificationService(db)}
}

// ReviewerRef names one reviewer and the role they review under.
type ReviewerRef struct {
	ReviewerID   int    `json:"reviewer_id"`
	ReviewerType string `json:"reviewer_type"`
}

// AssignReviewers upserts one assignment per reviewer for the employee.
// Idempotent on the (cycle, employee, reviewer, type) tuple: re-assigning an
// existing combination keeps the existing row. Newly created assignments get
// a review-requested notification and a notified_at stamp.
func (s *AssignmentService) AssignReviewers(caller Caller, cycleID, employeeID int, reviewers []ReviewerRef) ([]models.ReviewerAssignment, error) {
	if len(reviewers) == 0 {
		return nil, &ValidationError{Msg: "at least one reviewer is required"}
	}
	for _, ref := range reviewers {
		if ref.ReviewerID <= 0 {
			return nil, &ValidationError{Msg: "reviewer_id must be a positive user id"}
		}
		if !models.ValidReviewerType(ref.ReviewerType) {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid reviewer_type %q", ref.ReviewerType)}
		}
	}

	var cycle models.ReviewCycle
	if err := s.db.Where("cycle_id = ?", cycleID).First(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "cycle", ID: cycleID}
		}
		return nil, err
	}
	if !cycle.IsWritable() {
		return nil, &CycleNotActiveError{CycleID: cycleID, Status: cycle.Status}
	}

	var created []models.ReviewerAssignment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, ref := range reviewers {
			assignment := models.ReviewerAssignment{
				CycleID:      cycleID,
				EmployeeID:   employeeID,
				ReviewerID:   ref.ReviewerID,
				ReviewerType: ref.ReviewerType,
				AssignedBy:   caller.UserID,
				Status:       models.AssignmentStatusPending,
				CreateAt:     now,
			}
			// Conflict on the unique tuple keeps the existing row untouched.
			result := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "cycle_id"}, {Name: "employee_id"},
					{Name: "reviewer_id"}, {Name: "reviewer_type"},
				},
				DoNothing: true,
			}).Create(&assignment)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				created = append(created, assignment)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range created {
		s.notifications.NotifyBestEffort(created[i].ReviewerID, models.NotificationReviewRequested,
			"Review Requested",
			fmt.Sprintf("You have been assigned a %s review in cycle \"%s\".", created[i].ReviewerType, cycle.CycleName),
			&created[i].AssignmentID)

		notifiedAt := time.Now()
		if err := s.db.Model(&models.ReviewerAssignment{}).
			Where("assignment_id = ?", created[i].AssignmentID).
			Update("notified_at", notifiedAt).Error; err == nil {
			created[i].NotifiedAt = &notifiedAt
		}
	}

	// Return the full current set for the tuple prefix, existing rows included.
	var assignments []models.ReviewerAssignment
	if err := s.db.Where("cycle_id = ? AND employee_id = ?", cycleID, employeeID).
		Order("assignment_id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// FindAssignment resolves the unique tuple, or fails with
// AssignmentNotFoundError.
func (s *AssignmentService) FindAssignment(cycleID, employeeID, reviewerID int, reviewerType string) (*models.ReviewerAssignment, error) {
	return findAssignmentTx(s.db, cycleID, employeeID, reviewerID, reviewerType)
}

func findAssignmentTx(tx *gorm.DB, cycleID, employeeID, reviewerID int, reviewerType string) (*models.ReviewerAssignment, error) {
	var assignment models.ReviewerAssignment
	err := tx.Where("cycle_id = ? AND employee_id = ? AND reviewer_id = ? AND reviewer_type = ?",
		cycleID, employeeID, reviewerID, reviewerType).First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &AssignmentNotFoundError{
				CycleID:      cycleID,
				EmployeeID:   employeeID,
				ReviewerID:   reviewerID,
				ReviewerType: reviewerType,
			}
		}
		return nil, err
	}
	return &assignment, nil
}

// markCompletedTx flips the assignment to completed inside the caller's
// transaction. No-op when already completed.
func markCompletedTx(tx *gorm.DB, cycleID, employeeID, reviewerID int, reviewerType string) error {
	return tx.Model(&models.ReviewerAssignment{}).
		Where("cycle_id = ? AND employee_id = ? AND reviewer_id = ? AND reviewer_type = ? AND status <> ?",
			cycleID, employeeID, reviewerID, reviewerType, models.AssignmentStatusCompleted).
		Update("status", models.AssignmentStatusCompleted).Error
}

// ListAssignments returns assignments visible to the caller: staff see all
// (optionally filtered), everyone else sees only rows where they are the
// reviewer or the employee.
func (s *AssignmentService) ListAssignments(caller Caller, cycleID int) ([]models.ReviewerAssignment, error) {
	query := s.db.Model(&models.ReviewerAssignment{}).Preload("Cycle")
	if cycleID > 0 {
		query = query.Where("cycle_id = ?", cycleID)
	}
	if !caller.IsStaff() {
		query = query.Where("reviewer_id = ? OR employee_id = ?", caller.UserID, caller.UserID)
	}

	var assignments []models.ReviewerAssignment
	if err := query.Order("assignment_id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// SweepOverdue marks pending assignments overdue once the owning cycle's end
// date has passed, and reminds each affected reviewer. Returns the number of
// assignments flipped. Invoked by staff through the admin endpoint; there is
// no in-process scheduler.
func (s *AssignmentService) SweepOverdue(now time.Time) (int, error) {
	var expired []models.ReviewCycle
	if err := s.db.Where("end_date < ? AND status IN ?", now,
		[]string{models.CycleStatusActive, models.CycleStatusLocked}).
		Find(&expired).Error; err != nil {
		return 0, err
	}

	total := 0
	for _, cycle := range expired {
		var pending []models.ReviewerAssignment
		if err := s.db.Where("cycle_id = ? AND status = ?",
			cycle.CycleID, models.AssignmentStatusPending).Find(&pending).Error; err != nil {
			return total, err
		}
		if len(pending) == 0 {
			continue
		}

		if err := s.db.Model(&models.ReviewerAssignment{}).
			Where("cycle_id = ? AND status = ?", cycle.CycleID, models.AssignmentStatusPending).
			Update("status", models.AssignmentStatusOverdue).Error; err != nil {
			return total, err
		}

		for _, assignment := range pending {
			s.notifications.NotifyBestEffort(assignment.ReviewerID, models.NotificationReminder,
				"Review Overdue",
				fmt.Sprintf("Your %s review in cycle \"%s\" is overdue.", assignment.ReviewerType, cycle.CycleName),
				&assignment.AssignmentID)
		}
		total += len(pending)
	}
	return total, nil
}
