package services

import (
	"fmt"
	"testing"
	"time"

	"hr-review-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema. One
// connection only, so transactions in the code under test see the same
// database as the assertions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.UserToken{},
		&models.ReviewCycle{},
		&models.ReviewerAssignment{},
		&models.ReviewForm{},
		&models.ReviewNotification{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, userID, roleID int, name string) {
	t.Helper()
	now := time.Now()
	user := models.User{
		UserID:    userID,
		UserFname: name,
		UserLname: "Test",
		Email:     fmt.Sprintf("%s%d@example.com", name, userID),
		Password:  "x",
		RoleID:    roleID,
		CreateAt:  &now,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %d: %v", userID, err)
	}
}

func seedCycle(t *testing.T, db *gorm.DB, cycleID int, status string, endDate time.Time) models.ReviewCycle {
	t.Helper()
	now := time.Now()
	cycle := models.ReviewCycle{
		CycleID:   cycleID,
		CycleName: fmt.Sprintf("Cycle %d", cycleID),
		CycleType: models.CycleTypeSixMonth,
		StartDate: endDate.AddDate(0, -6, 0),
		EndDate:   endDate,
		Status:    status,
		CreatedBy: 1,
		CreateAt:  now,
		UpdateAt:  now,
	}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("seed cycle %d: %v", cycleID, err)
	}
	return cycle
}

func seedAssignment(t *testing.T, db *gorm.DB, cycleID, employeeID, reviewerID int, reviewerType string) models.ReviewerAssignment {
	t.Helper()
	assignment := models.ReviewerAssignment{
		CycleID:      cycleID,
		EmployeeID:   employeeID,
		ReviewerID:   reviewerID,
		ReviewerType: reviewerType,
		AssignedBy:   1,
		Status:       models.AssignmentStatusPending,
		CreateAt:     time.Now(),
	}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return assignment
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func countNotifications(t *testing.T, db *gorm.DB, userID int, notificationType string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.ReviewNotification{}).
		Where("user_id = ? AND type = ?", userID, notificationType).
		Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return count
}
