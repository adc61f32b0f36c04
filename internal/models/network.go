package models

import "time"

// Network is the graph artifact produced by a successful compilation.
type Network struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:255;not null;index"`
	Version     string `gorm:"size:64"`
	Description string `gorm:"type:text"`
	UserID      uint   `gorm:"index;not null"`
	ReportID    string `gorm:"size:36;uniqueIndex"`
	NodeCount   int
	EdgeCount   int
	CreatedAt   time.Time

	User     User      `gorm:"foreignKey:UserID"`
	Edges    []Edge    `gorm:"foreignKey:NetworkID"`
	Projects []Project `gorm:"many2many:project_networks"`
}

// Edge is a single relation inside a network.
type Edge struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	NetworkID string `gorm:"size:36;index;not null"`
	Source    string `gorm:"size:512;not null"`
	Relation  string `gorm:"size:64;not null"`
	Target    string `gorm:"size:512;not null"`
	Evidence  string `gorm:"type:text"`
	CitationID *uint

	Citation *Citation  `gorm:"foreignKey:CitationID"`
	Votes    []EdgeVote `gorm:"foreignKey:EdgeID"`
}

// Citation records the provenance of an edge's evidence.
type Citation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Database  string `gorm:"column:db;size:32;not null"` // e.g. "pubmed"
	Reference string `gorm:"size:255;not null;index"`
	Title     string `gorm:"type:text"`
}

// EdgeVote records one curator's agreement or disagreement with an edge.
// Re-voting updates the existing row.
type EdgeVote struct {
	EdgeID    uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey"`
	Agreed    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project groups networks for a curation effort.
type Project struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:255;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time

	Networks []Network `gorm:"many2many:project_networks"`
}
