package models

import "time"

// Query is a saved graph query: which networks to assemble and how to seed
// the subgraph. Rows are append-only; replay re-executes against current data.
type Query struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     uint   `gorm:"index;not null"`
	NetworkIDs string `gorm:"type:json;not null"` // JSON array of network IDs
	SeedNodes  string `gorm:"type:json"`          // JSON array of node names
	SeedMethod string `gorm:"size:32;default:induction"`
	CreatedAt  time.Time

	User User `gorm:"foreignKey:UserID"`
}

// Seed methods supported by query execution.
const (
	SeedInduction = "induction" // edges among the seed nodes only
	SeedNeighbors = "neighbors" // seeds plus their first neighborhood
)
