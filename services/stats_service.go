package services

import (
	"math"
	"time"

	"hr-review-api/models"

	"gorm.io/gorm"
)

// StatsService is the read-only rollup layer. Every aggregation runs inside a
// single transaction so the derived counts agree with each other.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// AdminStats is the staff-wide view, optionally restricted to one cycle.
type AdminStats struct {
	TotalCycles          int64            `json:"total_cycles"`
	ActiveCycles         int64            `json:"active_cycles"`
	TotalForms           int64            `json:"total_forms"`
	FormsByStatus        map[string]int64 `json:"forms_by_status"`
	FormsByReviewerType  map[string]int64 `json:"forms_by_reviewer_type"`
	SubmittedForms       int64            `json:"submitted_forms"`
	TotalAssignments     int64            `json:"total_assignments"`
	CompletedAssignments int64            `json:"completed_assignments"`
	OverdueAssignments   int64            `json:"overdue_assignments"`
	AverageRating        *float64         `json:"average_rating"`
}

// UpcomingDeadline is one of the caller's still-pending assignments with the
// cycle context a dashboard needs.
type UpcomingDeadline struct {
	AssignmentID int       `json:"assignment_id"`
	CycleID      int       `json:"cycle_id"`
	CycleName    string    `json:"cycle_name"`
	EndDate      time.Time `json:"end_date"`
	EmployeeID   int       `json:"employee_id"`
	ReviewerType string    `json:"reviewer_type"`
}

// IndividualStats is the self-service view for a non-staff caller.
type IndividualStats struct {
	MyPendingReviews   int64              `json:"my_pending_reviews"`
	MyCompletedReviews int64              `json:"my_completed_reviews"`
	ReviewsAboutMe     int64              `json:"reviews_about_me"`
	MyAverageRating    *float64           `json:"my_average_rating"`
	UpcomingDeadlines  []UpcomingDeadline `json:"upcoming_deadlines"`
}

// submittedStatuses covers every form that has passed the submission gate;
// approval does not remove a form from the submitted rollups.
var submittedStatuses = []string{models.FormStatusSubmitted, models.FormStatusApproved}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GetAdminStats computes the staff dashboard. cycleID 0 means all cycles.
func (s *StatsService) GetAdminStats(cycleID int) (*AdminStats, error) {
	stats := &AdminStats{
		FormsByStatus:       map[string]int64{},
		FormsByReviewerType: map[string]int64{},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cycleQuery := tx.Model(&models.ReviewCycle{})
		if cycleID > 0 {
			cycleQuery = cycleQuery.Where("cycle_id = ?", cycleID)
		}
		if err := cycleQuery.Count(&stats.TotalCycles).Error; err != nil {
			return err
		}

		activeQuery := tx.Model(&models.ReviewCycle{}).Where("status = ?", models.CycleStatusActive)
		if cycleID > 0 {
			activeQuery = activeQuery.Where("cycle_id = ?", cycleID)
		}
		if err := activeQuery.Count(&stats.ActiveCycles).Error; err != nil {
			return err
		}

		formScope := func() *gorm.DB {
			q := tx.Model(&models.ReviewForm{})
			if cycleID > 0 {
				q = q.Where("cycle_id = ?", cycleID)
			}
			return q
		}

		if err := formScope().Count(&stats.TotalForms).Error; err != nil {
			return err
		}

		var statusRows []struct {
			Status string
			Total  int64
		}
		if err := formScope().Select("status, COUNT(*) AS total").
			Group("status").Scan(&statusRows).Error; err != nil {
			return err
		}
		for _, row := range statusRows {
			stats.FormsByStatus[row.Status] = row.Total
		}
		stats.SubmittedForms = stats.FormsByStatus[models.FormStatusSubmitted] +
			stats.FormsByStatus[models.FormStatusApproved]

		var typeRows []struct {
			ReviewerType string
			Total        int64
		}
		if err := formScope().Select("reviewer_type, COUNT(*) AS total").
			Group("reviewer_type").Scan(&typeRows).Error; err != nil {
			return err
		}
		for _, row := range typeRows {
			stats.FormsByReviewerType[row.ReviewerType] = row.Total
		}

		assignmentScope := func() *gorm.DB {
			q := tx.Model(&models.ReviewerAssignment{})
			if cycleID > 0 {
				q = q.Where("cycle_id = ?", cycleID)
			}
			return q
		}
		if err := assignmentScope().Count(&stats.TotalAssignments).Error; err != nil {
			return err
		}
		if err := assignmentScope().Where("status = ?", models.AssignmentStatusCompleted).
			Count(&stats.CompletedAssignments).Error; err != nil {
			return err
		}
		if err := assignmentScope().Where("status = ?", models.AssignmentStatusOverdue).
			Count(&stats.OverdueAssignments).Error; err != nil {
			return err
		}

		if stats.SubmittedForms > 0 {
			var avg *float64
			if err := formScope().Where("status IN ? AND overall_rating IS NOT NULL", submittedStatuses).
				Select("AVG(overall_rating)").Scan(&avg).Error; err != nil {
				return err
			}
			if avg != nil {
				rounded := round2(*avg)
				stats.AverageRating = &rounded
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetIndividualStats computes the caller's own dashboard. cycleID 0 means all
// cycles.
func (s *StatsService) GetIndividualStats(userID, cycleID int) (*IndividualStats, error) {
	stats := &IndividualStats{UpcomingDeadlines: []UpcomingDeadline{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Every assignment not yet completed is a review still owed: not
		// started, or sitting in draft.
		pendingQuery := tx.Model(&models.ReviewerAssignment{}).
			Where("reviewer_id = ? AND status <> ?", userID, models.AssignmentStatusCompleted)
		if cycleID > 0 {
			pendingQuery = pendingQuery.Where("cycle_id = ?", cycleID)
		}
		if err := pendingQuery.Count(&stats.MyPendingReviews).Error; err != nil {
			return err
		}

		completedQuery := tx.Model(&models.ReviewForm{}).
			Where("reviewer_id = ? AND status IN ?", userID, submittedStatuses)
		if cycleID > 0 {
			completedQuery = completedQuery.Where("cycle_id = ?", cycleID)
		}
		if err := completedQuery.Count(&stats.MyCompletedReviews).Error; err != nil {
			return err
		}

		aboutMeQuery := tx.Model(&models.ReviewForm{}).
			Where("employee_id = ? AND status IN ?", userID, submittedStatuses)
		if cycleID > 0 {
			aboutMeQuery = aboutMeQuery.Where("cycle_id = ?", cycleID)
		}
		if err := aboutMeQuery.Count(&stats.ReviewsAboutMe).Error; err != nil {
			return err
		}

		if stats.ReviewsAboutMe > 0 {
			avgQuery := tx.Model(&models.ReviewForm{}).
				Where("employee_id = ? AND status IN ? AND overall_rating IS NOT NULL", userID, submittedStatuses)
			if cycleID > 0 {
				avgQuery = avgQuery.Where("cycle_id = ?", cycleID)
			}
			var avg *float64
			if err := avgQuery.Select("AVG(overall_rating)").Scan(&avg).Error; err != nil {
				return err
			}
			if avg != nil {
				rounded := round2(*avg)
				stats.MyAverageRating = &rounded
			}
		}

		deadlineQuery := tx.Model(&models.ReviewerAssignment{}).
			Select("reviewer_assignments.assignment_id, reviewer_assignments.cycle_id, review_cycles.cycle_name, review_cycles.end_date, reviewer_assignments.employee_id, reviewer_assignments.reviewer_type").
			Joins("JOIN review_cycles ON review_cycles.cycle_id = reviewer_assignments.cycle_id").
			Where("reviewer_assignments.reviewer_id = ? AND reviewer_assignments.status = ?",
				userID, models.AssignmentStatusPending)
		if cycleID > 0 {
			deadlineQuery = deadlineQuery.Where("reviewer_assignments.cycle_id = ?", cycleID)
		}
		return deadlineQuery.Order("review_cycles.end_date ASC, reviewer_assignments.assignment_id ASC").
			Scan(&stats.UpcomingDeadlines).Error
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
