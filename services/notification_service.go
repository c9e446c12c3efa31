package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"hr-review-api/config"
	"hr-review-api/models"

	"gorm.io/gorm"
)

// NotificationService appends review notifications and exposes the read API.
// It carries no business logic; the form and cycle services decide who gets
// notified and when.
type NotificationService struct {
	db *gorm.DB

	// sendMail is swappable in tests; production uses config.SendMail.
	sendMail func(to []string, subject, html string) error
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, sendMail: config.SendMail}
}

// Notify appends one notification row. The caller decides whether a failure
// matters; Notify itself never writes anything but the row.
func (s *NotificationService) Notify(userID int, notificationType, title, message string, relatedID *int) (*models.ReviewNotification, error) {
	notification := models.ReviewNotification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		IsRead:    false,
		CreateAt:  time.Now(),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// NotifyBestEffort appends a notification and only logs on failure.
func (s *NotificationService) NotifyBestEffort(userID int, notificationType, title, message string, relatedID *int) {
	if _, err := s.Notify(userID, notificationType, title, message, relatedID); err != nil {
		log.Printf("Warning: failed to notify user %d (%s): %v", userID, notificationType, err)
	}
}

// NotifyWithEmail appends the notification row and then attempts a best-effort
// email to the recipient. Email failure is logged, never returned; the row
// write error is the only hard failure.
func (s *NotificationService) NotifyWithEmail(userID int, notificationType, title, message string, relatedID *int) error {
	if _, err := s.Notify(userID, notificationType, title, message, relatedID); err != nil {
		return err
	}

	if !config.MailConfigured() {
		return nil
	}

	var user models.User
	if err := s.db.Where("user_id = ? AND delete_at IS NULL", userID).First(&user).Error; err != nil {
		log.Printf("Warning: cannot resolve email for user %d: %v", userID, err)
		return nil
	}

	html := fmt.Sprintf("<p>Dear %s,</p><p>%s</p>", user.FullName(), message)
	if err := s.sendMail([]string{user.Email}, title, html); err != nil {
		log.Printf("Warning: failed to send notification email to user %d: %v", userID, err)
	}
	return nil
}

// BroadcastToStaff notifies every active admin and hr user. Partial failures
// are logged and skipped; the broadcast never aborts the caller's flow.
func (s *NotificationService) BroadcastToStaff(notificationType, title, message string, relatedID *int) {
	var staff []models.User
	if err := s.db.Where("role_id IN ? AND delete_at IS NULL",
		[]int{models.RoleAdmin, models.RoleHR}).Find(&staff).Error; err != nil {
		log.Printf("Warning: failed to load staff users for broadcast: %v", err)
		return
	}

	for _, user := range staff {
		s.NotifyBestEffort(user.UserID, notificationType, title, message, relatedID)
	}
}

// List returns the user's notifications newest first.
func (s *NotificationService) List(userID int, unreadOnly bool) ([]models.ReviewNotification, error) {
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.ReviewNotification
	if err := query.Order("create_at DESC, notification_id DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(userID int) (int64, error) {
	var count int64
	err := s.db.Model(&models.ReviewNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag. Only the recipient may do so.
func (s *NotificationService) MarkRead(caller Caller, notificationID int) error {
	var notification models.ReviewNotification
	if err := s.db.Where("notification_id = ?", notificationID).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "notification", ID: notificationID}
		}
		return err
	}

	if notification.UserID != caller.UserID {
		return &PermissionError{Msg: "notifications can only be marked read by their recipient"}
	}
	if notification.IsRead {
		return nil
	}

	now := time.Now()
	return s.db.Model(&models.ReviewNotification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]interface{}{"is_read": true, "update_at": now}).Error
}

func (s *NotificationService) MarkAllRead(userID int) error {
	now := time.Now()
	return s.db.Model(&models.ReviewNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "update_at": now}).Error
}
