// Package notify delivers report lifecycle notifications to chat platforms.
// Delivery is best-effort: the pipeline never blocks or fails on a
// notification error.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/belfry-bio/belfry/internal/config"
)

// Severities for events.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Event is a notification about a report or digest.
type Event struct {
	Title    string
	Body     string
	Severity string
}

// Notifier delivers events to a destination.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// FromConfig builds the configured notifier. An empty platform falls back to
// local logging.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	switch cfg.Platform {
	case "":
		return &LogNotifier{}, nil
	case "slack":
		return NewSlack(cfg.Token, cfg.ChannelID), nil
	case "discord":
		return NewDiscord(cfg.Token, cfg.ChannelID)
	default:
		return nil, fmt.Errorf("notify: unsupported platform %q", cfg.Platform)
	}
}

// LogNotifier writes events to the process log.
type LogNotifier struct{}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, evt Event) error {
	log.Printf("notify: [%s] %s: %s", evt.Severity, evt.Title, evt.Body)
	return nil
}

// severityColor maps a severity to a sidebar color hint.
func severityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return "#36a64f"
	case SeverityError:
		return "#d00000"
	case SeverityWarning:
		return "#e8a100"
	default:
		return "#439fe0"
	}
}
