package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/belfry-bio/belfry/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.Report{},
		&models.Network{},
		&models.Edge{},
		&models.Citation{},
		&models.EdgeVote{},
		&models.Query{},
		&models.Omic{},
		&models.OmicRow{},
		&models.Task{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedUser upserts a user by email and returns it with a fresh API key when
// one was not already assigned.
func SeedUser(db *gorm.DB, name, email string, admin bool) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("db: email is required")
	}

	key, err := NewAPIKey()
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:   name,
		Email:  email,
		APIKey: key,
		Admin:  admin,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "admin"}),
	}).Create(&user)
	if result.Error != nil {
		return nil, fmt.Errorf("db: seed user %q: %w", email, result.Error)
	}

	// On conflict the generated key was discarded; read back the stored row.
	var stored models.User
	if err := db.Where("email = ?", email).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("db: load user %q: %w", email, err)
	}
	return &stored, nil
}

// NewAPIKey returns a random 32-hex-char key.
func NewAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("db: generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
