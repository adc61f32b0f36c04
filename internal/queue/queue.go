// Package queue implements the DB-backed task queue between the web process
// and the compilation workers. Delivery is at least once with no ordering
// guarantee across reports; consumers must tolerate redelivery.
package queue

import (
	"fmt"
	"time"

	"github.com/belfry-bio/belfry/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Enqueue creates a queued task for the report. Callers that need the task
// and report created atomically pass a transaction handle.
func Enqueue(db *gorm.DB, reportID string) (*models.Task, error) {
	if reportID == "" {
		return nil, fmt.Errorf("queue: reportID is required")
	}

	task := models.Task{
		ReportID:  reportID,
		State:     models.TaskQueued,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("queue: enqueue report %s: %w", reportID, err)
	}
	return &task, nil
}

// Claim atomically takes the oldest queued task and marks it taken. It uses
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never take the
// same row. Returns gorm.ErrRecordNotFound (wrapped) when the queue is empty.
func Claim(db *gorm.DB) (*models.Task, error) {
	var claimed models.Task

	err := db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("state = ?", models.TaskQueued)
		// sqlite has no row locks; its single-writer model serializes claims.
		if tx.Dialector.Name() == "mysql" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		result := q.Order("created_at ASC").
			Limit(1).
			Find(&claimed)

		if result.Error != nil {
			return fmt.Errorf("queue: find queued task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("queue: empty: %w", gorm.ErrRecordNotFound)
		}

		now := time.Now()
		if err := tx.Model(&models.Task{}).Where("id = ?", claimed.ID).Updates(map[string]interface{}{
			"state":      models.TaskTaken,
			"attempts":   gorm.Expr("attempts + 1"),
			"claimed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("queue: claim task %d: %w", claimed.ID, err)
		}
		claimed.State = models.TaskTaken
		claimed.Attempts++
		claimed.ClaimedAt = &now
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// Done marks a task finished. Terminal; the row is kept for audit.
func Done(db *gorm.DB, taskID uint) error {
	result := db.Model(&models.Task{}).Where("id = ?", taskID).
		Update("state", models.TaskDone)
	if result.Error != nil {
		return fmt.Errorf("queue: done task %d: %w", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("queue: task not found: %d", taskID)
	}
	return nil
}

// Release puts a taken task back on the queue after an infrastructure
// failure, so another worker can retry the report.
func Release(db *gorm.DB, taskID uint) error {
	result := db.Model(&models.Task{}).Where("id = ? AND state = ?", taskID, models.TaskTaken).
		Updates(map[string]interface{}{"state": models.TaskQueued, "claimed_at": nil})
	if result.Error != nil {
		return fmt.Errorf("queue: release task %d: %w", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("queue: task not taken: %d", taskID)
	}
	return nil
}

// Depth returns the number of queued tasks.
func Depth(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&models.Task{}).Where("state = ?", models.TaskQueued).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("queue: depth: %w", err)
	}
	return count, nil
}
