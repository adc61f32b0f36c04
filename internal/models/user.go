package models

import "time"

// User owns reports, networks, queries, and omics datasets.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	APIKey    string `gorm:"size:64;uniqueIndex"`
	Admin     bool   `gorm:"default:false"`
	CreatedAt time.Time
}
