package models

import "time"

// Report status values. "stalled" is intentionally absent: it is derived at
// view time from the age of a pending report and never persisted.
const (
	ReportPending   = "pending"
	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

// Report tracks one document-compilation attempt. It is created on upload,
// mutated by exactly one worker task, and immutable once terminal.
type Report struct {
	ID          string `gorm:"primaryKey;size:36"`
	SourceName  string `gorm:"size:255;not null"`
	Document    string `gorm:"type:text;not null"`
	Status      string `gorm:"size:16;default:pending;index"`
	Error       string `gorm:"type:text"`
	UserID      uint   `gorm:"index;not null"`
	NetworkID   *string `gorm:"size:36"`
	CreatedAt   time.Time
	CompletedAt *time.Time

	User    User     `gorm:"foreignKey:UserID"`
	Network *Network `gorm:"foreignKey:NetworkID"`
}

// Terminal reports whether the report reached a final state.
func (r *Report) Terminal() bool {
	return r.Status == ReportCompleted || r.Status == ReportFailed
}
