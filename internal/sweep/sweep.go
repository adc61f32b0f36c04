// Package sweep periodically reports stalled compilations. It is strictly
// read-only over reports: staleness is a display heuristic, and the sweep
// never promotes it to a persisted state.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/belfry-bio/belfry/internal/notify"
	"github.com/belfry-bio/belfry/internal/reports"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Sweeper sends a digest of stalled reports on a cron schedule.
type Sweeper struct {
	db        *gorm.DB
	notifier  notify.Notifier
	threshold time.Duration
	schedule  string
}

// Opts holds configuration for a Sweeper.
type Opts struct {
	DB        *gorm.DB
	Notifier  notify.Notifier
	Threshold time.Duration
	Schedule  string // 5-field cron expression
}

// New validates the schedule and builds a Sweeper.
func New(opts Opts) (*Sweeper, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("sweep: db is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("sweep: notifier is required")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 30 * time.Minute
	}
	if _, err := cronParser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("sweep: schedule %q: %w", opts.Schedule, err)
	}
	return &Sweeper{
		db:        opts.DB,
		notifier:  opts.Notifier,
		threshold: opts.Threshold,
		schedule:  opts.Schedule,
	}, nil
}

// Start runs the cron loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(s.schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("sweep: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("sweep: add schedule: %w", err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce builds and sends a digest. No stalled reports means no message.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	evt, err := s.BuildDigest(time.Now())
	if err != nil {
		return err
	}
	if evt == nil {
		return nil
	}
	return s.notifier.Notify(ctx, *evt)
}

// BuildDigest lists stalled reports and formats a single event. Returns nil
// when nothing is stalled.
func (s *Sweeper) BuildDigest(now time.Time) (*notify.Event, error) {
	stalled, err := reports.ListStalled(s.db, s.threshold, now)
	if err != nil {
		return nil, err
	}
	if len(stalled) == 0 {
		return nil, nil
	}

	body := ""
	for _, r := range stalled {
		age := now.Sub(r.CreatedAt).Round(time.Minute)
		body += fmt.Sprintf("%s — %s (pending %s)\n", r.ID, r.SourceName, age)
	}

	return &notify.Event{
		Title:    fmt.Sprintf("%d stalled compilation(s)", len(stalled)),
		Body:     body,
		Severity: notify.SeverityWarning,
	}, nil
}
