package models

import "time"

// Omic is a stored differential-expression dataset used in downstream
// analysis against compiled networks.
type Omic struct {
	ID          string `gorm:"primaryKey;size:36"`
	SourceName  string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	UserID      uint   `gorm:"index;not null"`
	RowCount    int
	CreatedAt   time.Time

	User User       `gorm:"foreignKey:UserID"`
	Rows []OmicRow  `gorm:"foreignKey:OmicID"`
}

// OmicRow is one gene measurement within a dataset.
type OmicRow struct {
	ID     uint    `gorm:"primaryKey;autoIncrement"`
	OmicID string  `gorm:"size:36;index;not null"`
	Gene   string  `gorm:"size:64;index;not null"`
	Log2FC float64
	PValue float64
}
