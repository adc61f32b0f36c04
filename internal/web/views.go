package web

import (
	"fmt"
	"time"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/reports"
	"gorm.io/gorm"
)

// reportView is the wire and template shape of a report. Status carries the
// display status, which may be "stalled" even though the row says pending.
type reportView struct {
	ID          string     `json:"id"`
	SourceName  string     `json:"source_name"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	NetworkID   *string    `json:"network_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Submitted   string     `json:"-"`
}

func newReportView(r *models.Report, stalledAfter time.Duration) reportView {
	return reportView{
		ID:          r.ID,
		SourceName:  r.SourceName,
		Status:      reports.DisplayStatus(r, stalledAfter, time.Now()),
		Error:       r.Error,
		NetworkID:   r.NetworkID,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
		Submitted:   TimeAgo(r.CreatedAt),
	}
}

func reportViews(rs []models.Report, stalledAfter time.Duration) []reportView {
	views := make([]reportView, len(rs))
	for i := range rs {
		views[i] = newReportView(&rs[i], stalledAfter)
	}
	return views
}

// dashboardData gathers the counts and recent reports for the index page.
func dashboardData(db *gorm.DB, stalledAfter time.Duration) map[string]any {
	var networkCount, reportCount, pendingCount int64
	var recent []models.Report
	if db != nil {
		db.Model(&models.Network{}).Count(&networkCount)
		db.Model(&models.Report{}).Count(&reportCount)
		db.Model(&models.Report{}).Where("status = ?", models.ReportPending).Count(&pendingCount)
		db.Order("created_at DESC").Limit(10).Find(&recent)
	}
	return map[string]any{
		"page":         "dashboard",
		"NetworkCount": networkCount,
		"ReportCount":  reportCount,
		"PendingCount": pendingCount,
		"Recent":       reportViews(recent, stalledAfter),
	}
}

// TimeAgo formats a timestamp as a relative age like "5m ago".
func TimeAgo(when time.Time) string {
	if when.IsZero() {
		return "—"
	}
	d := time.Since(when)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
