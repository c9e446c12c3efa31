package models

import "time"

// Reviewer types describe the reviewer's relationship to the employee.
const (
	ReviewerTypeSelf    = "self"
	ReviewerTypePeer    = "peer"
	ReviewerTypeClient  = "client"
	ReviewerTypeManager = "manager"
)

// Assignment statuses
const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusOverdue   = "overdue"
)

// ReviewerAssignment binds one reviewer to one employee for one reviewer type
// within a cycle. The tuple (cycle, employee, reviewer, type) is unique.
type ReviewerAssignment struct {
	AssignmentID int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	CycleID      int        `gorm:"column:cycle_id;uniqueIndex:uq_assignment_tuple" json:"cycle_id"`
	EmployeeID   int        `gorm:"column:employee_id;uniqueIndex:uq_assignment_tuple" json:"employee_id"`
	ReviewerID   int        `gorm:"column:reviewer_id;uniqueIndex:uq_assignment_tuple" json:"reviewer_id"`
	ReviewerType string     `gorm:"column:reviewer_type;uniqueIndex:uq_assignment_tuple" json:"reviewer_type"`
	AssignedBy   int        `gorm:"column:assigned_by" json:"assigned_by"`
	Status       string     `gorm:"column:status" json:"status"`
	NotifiedAt   *time.Time `gorm:"column:notified_at" json:"notified_at,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`

	Cycle    *ReviewCycle `gorm:"foreignKey:CycleID" json:"cycle,omitempty"`
	Employee *User        `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Reviewer *User        `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (ReviewerAssignment) TableName() string {
	return "reviewer_assignments"
}

func ValidReviewerType(t string) bool {
	switch t {
	case ReviewerTypeSelf, ReviewerTypePeer, ReviewerTypeClient, ReviewerTypeManager:
		return true
	}
	return false
}
