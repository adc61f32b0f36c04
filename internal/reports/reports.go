// Package reports implements the compilation-report lifecycle: creation on
// upload, terminal transitions applied by the worker, and the view-time
// stalled classification.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusStalled is a display-only status for pending reports past the
// staleness threshold. It is computed by viewers and never written.
const StatusStalled = "stalled"

// ErrEmptyDocument is returned when an upload carries no content. No report
// row is created in that case.
var ErrEmptyDocument = fmt.Errorf("reports: document is empty")

// ErrTerminal is returned when a transition targets an already-terminal
// report. Terminal reports are immutable.
var ErrTerminal = fmt.Errorf("reports: report already terminal")

// Create validates the upload, persists a pending report, and enqueues a
// compilation task in the same transaction. An enqueue failure is returned
// synchronously and leaves no partial state behind.
func Create(db *gorm.DB, userID uint, sourceName string, document []byte) (*models.Report, error) {
	if userID == 0 {
		return nil, fmt.Errorf("reports: userID is required")
	}
	if strings.TrimSpace(string(document)) == "" {
		return nil, ErrEmptyDocument
	}
	if sourceName == "" {
		sourceName = "untitled.bel"
	}

	report := models.Report{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		Document:   string(document),
		Status:     models.ReportPending,
		UserID:     userID,
		CreatedAt:  time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return fmt.Errorf("reports: create: %w", err)
		}
		if _, err := queue.Enqueue(tx, report.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Complete moves a pending report to completed and links the resulting
// network. The conditional update makes terminal states immutable: a second
// delivery finds zero matching rows and gets ErrTerminal.
func Complete(db *gorm.DB, reportID, networkID string) error {
	now := time.Now()
	result := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":       models.ReportCompleted,
			"network_id":   networkID,
			"completed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("reports: complete %s: %w", reportID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reports: complete %s: %w", reportID, ErrTerminal)
	}
	return nil
}

// Fail moves a pending report to failed with the compiler's diagnostic.
// Same immutability guard as Complete.
func Fail(db *gorm.DB, reportID, errText string) error {
	now := time.Now()
	result := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":       models.ReportFailed,
			"error":        errText,
			"completed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("reports: fail %s: %w", reportID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reports: fail %s: %w", reportID, ErrTerminal)
	}
	return nil
}

// Get loads a report by id.
func Get(db *gorm.DB, id string) (*models.Report, error) {
	var report models.Report
	if err := db.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, fmt.Errorf("reports: get %s: %w", id, err)
	}
	return &report, nil
}

// ListByUser returns a user's reports, newest first.
func ListByUser(db *gorm.DB, userID uint) ([]models.Report, error) {
	var reports []models.Report
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("reports: list for user %d: %w", userID, err)
	}
	return reports, nil
}

// DisplayStatus returns the status a viewer should render. Pending reports
// older than threshold show as stalled; nothing is written.
func DisplayStatus(r *models.Report, threshold time.Duration, now time.Time) string {
	if r.Status == models.ReportPending && now.Sub(r.CreatedAt) > threshold {
		return StatusStalled
	}
	return r.Status
}

// ListStalled returns pending reports older than the threshold, oldest
// first. Used by the digest sweep; read-only.
func ListStalled(db *gorm.DB, threshold time.Duration, now time.Time) ([]models.Report, error) {
	cutoff := now.Add(-threshold)
	var reports []models.Report
	if err := db.Where("status = ? AND created_at < ?", models.ReportPending, cutoff).
		Order("created_at ASC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("reports: list stalled: %w", err)
	}
	return reports, nil
}
