package database

import (
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
	"github.com/esalinasbarros/zmartboard/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ProjectInvitation{},
		&models.Board{},
		&models.Column{},
		&models.Task{},
		&models.TimeEntry{},
		&models.EmailVerification{},
		&models.AuditLog{},
	)
}

// SeedData provisions an initial SUPER_ADMIN account when bootstrap
// credentials are supplied via the environment and no users exist yet.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	email := strings.TrimSpace(os.Getenv("ZMARTBOARD_BOOTSTRAP_ADMIN_EMAIL"))
	password := os.Getenv("ZMARTBOARD_BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:      "admin",
		Email:         strings.ToLower(email),
		Password:      hash,
		Role:          models.UserRoleSuperAdmin,
		EmailVerified: true,
		IsActive:      true,
	}

	return db.Create(&admin).Error
}
