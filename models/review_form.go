package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Form statuses
const (
	FormStatusDraft     = "draft"
	FormStatusSubmitted = "submitted"
	FormStatusApproved  = "approved"
)

// KPIScore is one named 1-5 rating contributing to the overall rating.
type KPIScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// KPIScoreList is stored as a JSON column. Order is preserved.
type KPIScoreList []KPIScore

func (l KPIScoreList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *KPIScoreList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported kpi_scores column type %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// ReviewForm is the review content authored by a reviewer about an employee.
// Exactly one form exists per (cycle, employee, reviewer, type) tuple; a
// second write for the same tuple updates the existing row.
type ReviewForm struct {
	FormID             int          `gorm:"primaryKey;column:form_id" json:"form_id"`
	CycleID            int          `gorm:"column:cycle_id;uniqueIndex:uq_form_tuple" json:"cycle_id"`
	EmployeeID         int          `gorm:"column:employee_id;uniqueIndex:uq_form_tuple" json:"employee_id"`
	ReviewerID         int          `gorm:"column:reviewer_id;uniqueIndex:uq_form_tuple" json:"reviewer_id"`
	ReviewerType       string       `gorm:"column:reviewer_type;uniqueIndex:uq_form_tuple" json:"reviewer_type"`
	Status             string       `gorm:"column:status" json:"status"`
	OverallRating      *int         `gorm:"column:overall_rating" json:"overall_rating,omitempty"`
	GoalsAchievement   *string      `gorm:"column:goals_achievement" json:"goals_achievement,omitempty"`
	Strengths          *string      `gorm:"column:strengths" json:"strengths,omitempty"`
	Improvements       *string      `gorm:"column:improvements" json:"improvements,omitempty"`
	AdditionalComments *string      `gorm:"column:additional_comments" json:"additional_comments,omitempty"`
	KPIScores          KPIScoreList `gorm:"column:kpi_scores;type:json" json:"kpi_scores,omitempty"`
	SubmittedAt        *time.Time   `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreateAt           time.Time    `gorm:"column:create_at" json:"create_at"`
	UpdateAt           time.Time    `gorm:"column:update_at" json:"update_at"`

	Cycle    *ReviewCycle `gorm:"foreignKey:CycleID" json:"cycle,omitempty"`
	Employee *User        `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Reviewer *User        `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (ReviewForm) TableName() string {
	return "review_forms"
}

func ValidFormStatus(s string) bool {
	switch s {
	case FormStatusDraft, FormStatusSubmitted, FormStatusApproved:
		return true
	}
	return false
}
