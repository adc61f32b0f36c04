package models

import "time"

// Task states.
const (
	TaskQueued = "queued"
	TaskTaken  = "taken"
	TaskDone   = "done"
)

// Task is a queue row pointing at a report awaiting compilation. Delivery is
// at least once: a crashed worker leaves the row taken until it is released,
// and redelivery is harmless because terminal reports are never reprocessed.
type Task struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ReportID  string `gorm:"size:36;index;not null"`
	State     string `gorm:"size:16;default:queued;index"`
	Attempts  int    `gorm:"default:0"`
	CreatedAt time.Time
	ClaimedAt *time.Time

	Report Report `gorm:"foreignKey:ReportID"`
}
