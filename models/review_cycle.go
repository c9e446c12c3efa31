package models

import "time"

// Cycle statuses. Transitions are monotonic (draft -> active -> locked ->
// completed) except for the explicit locked -> active reopen.
const (
	CycleStatusDraft     = "draft"
	CycleStatusActive    = "active"
	CycleStatusLocked    = "locked"
	CycleStatusCompleted = "completed"
)

// Cycle types
const (
	CycleTypeSixMonth = "six_month"
	CycleTypeOneYear  = "one_year"
)

type ReviewCycle struct {
	CycleID   int       `gorm:"primaryKey;column:cycle_id" json:"cycle_id"`
	CycleName string    `gorm:"column:cycle_name" json:"cycle_name"`
	CycleType string    `gorm:"column:cycle_type" json:"cycle_type"`
	StartDate time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date" json:"end_date"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedBy int       `gorm:"column:created_by" json:"created_by"`
	CreateAt  time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  time.Time `gorm:"column:update_at" json:"update_at"`

	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (ReviewCycle) TableName() string {
	return "review_cycles"
}

// IsWritable reports whether forms and assignments may still be created or
// updated under this cycle.
func (c *ReviewCycle) IsWritable() bool {
	return c.Status == CycleStatusDraft || c.Status == CycleStatusActive
}

func ValidCycleType(t string) bool {
	return t == CycleTypeSixMonth || t == CycleTypeOneYear
}
