// Schema migration and seed data for the review engine.
// cmd/migrate/main.go
package main

import (
	"log"
	"os"
	"time"

	"hr-review-api/config"
	"hr-review-api/models"
	"hr-review-api/utils"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	if err := config.DB.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.UserToken{},
		&models.ReviewCycle{},
		&models.ReviewerAssignment{},
		&models.ReviewForm{},
		&models.ReviewNotification{},
	); err != nil {
		log.Fatal("Migration failed:", err)
	}

	seedRoles()
	seedAdmin()

	log.Println("Migration completed!")
}

func seedRoles() {
	roles := []models.Role{
		{RoleID: models.RoleAdmin, Role: "admin"},
		{RoleID: models.RoleHR, Role: "hr"},
		{RoleID: models.RoleEmployee, Role: "employee"},
	}

	now := time.Now()
	for _, role := range roles {
		role.CreateAt = &now
		var existing models.Role
		if err := config.DB.Where("role_id = ?", role.RoleID).First(&existing).Error; err == nil {
			continue
		}
		if err := config.DB.Create(&role).Error; err != nil {
			log.Printf("Failed to seed role %s: %v", role.Role, err)
		}
	}
}

func seedAdmin() {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("Admin user %s already exists, skipping", email)
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Fatal("Failed to hash admin password:", err)
	}

	now := time.Now()
	admin := models.User{
		UserFname: "System",
		UserLname: "Admin",
		Email:     email,
		Password:  hashed,
		RoleID:    models.RoleAdmin,
		CreateAt:  &now,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}
	log.Printf("Seeded admin user %s", email)
}
