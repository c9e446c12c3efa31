package models

import "time"

// Notification types
const (
	NotificationReviewSubmitted = "review_submitted"
	NotificationDraftSaved      = "draft_saved"
	NotificationReviewRequested = "review_requested"
	NotificationCycleCompleted  = "cycle_completed"
	NotificationReminder        = "reminder"
)

// ReviewNotification is append-only; only the read flag is ever updated.
type ReviewNotification struct {
	NotificationID int        `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID         int        `gorm:"column:user_id" json:"user_id"`
	Type           string     `gorm:"column:type" json:"type"`
	Title          string     `gorm:"column:title" json:"title"`
	Message        string     `gorm:"column:message" json:"message"`
	RelatedID      *int       `gorm:"column:related_id" json:"related_id,omitempty"`
	IsRead         bool       `gorm:"column:is_read" json:"is_read"`
	CreateAt       time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt       *time.Time `gorm:"column:update_at" json:"-"`
}

func (ReviewNotification) TableName() string {
	return "review_notifications"
}
