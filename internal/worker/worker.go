// Package worker runs the background compilation pool. Workers claim tasks
// from the queue, drive the external compiler, and apply the one-shot
// terminal transition to the owning report.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/belfry-bio/belfry/internal/compiler"
	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/networks"
	"github.com/belfry-bio/belfry/internal/notify"
	"github.com/belfry-bio/belfry/internal/queue"
	"github.com/belfry-bio/belfry/internal/reports"
	"gorm.io/gorm"
)

// Pool consumes the task queue with a fixed number of workers.
type Pool struct {
	db           *gorm.DB
	compiler     compiler.Compiler
	notifier     notify.Notifier
	concurrency  int
	pollInterval time.Duration
}

// Opts holds configuration for a worker pool.
type Opts struct {
	DB           *gorm.DB
	Compiler     compiler.Compiler
	Notifier     notify.Notifier
	Concurrency  int
	PollInterval time.Duration
}

// NewPool builds a pool. Notifier may be nil; notifications are skipped.
func NewPool(opts Opts) (*Pool, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("worker: db is required")
	}
	if opts.Compiler == nil {
		return nil, fmt.Errorf("worker: compiler is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Pool{
		db:           opts.DB,
		compiler:     opts.Compiler,
		notifier:     opts.Notifier,
		concurrency:  opts.Concurrency,
		pollInterval: opts.PollInterval,
	}, nil
}

// Run blocks until ctx is cancelled, consuming tasks with the configured
// concurrency.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx)
		}()
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := queue.Claim(p.db)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("worker: claim: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		if err := p.Process(ctx, task); err != nil {
			log.Printf("worker: task %d (report %s): %v", task.ID, task.ReportID, err)
		}
	}
}

// Process handles one claimed task. Redelivered tasks for terminal reports
// are acknowledged without side effects, so duplicate delivery never
// produces a duplicate network. Infrastructure errors release the task back
// to the queue and leave the report pending; the viewer eventually
// classifies it stalled.
func (p *Pool) Process(ctx context.Context, task *models.Task) error {
	report, err := reports.Get(p.db, task.ReportID)
	if err != nil {
		// Task points at a report that no longer exists; drop it.
		return queue.Done(p.db, task.ID)
	}

	if report.Terminal() {
		return queue.Done(p.db, task.ID)
	}

	graph, err := p.compiler.Compile(ctx, report.SourceName, []byte(report.Document))
	if err != nil {
		if compiler.IsCompileError(err) {
			return p.fail(task, report, err.Error())
		}
		// Infrastructure trouble: requeue, do not touch the report.
		if relErr := queue.Release(p.db, task.ID); relErr != nil {
			return fmt.Errorf("worker: release after %v: %w", err, relErr)
		}
		return fmt.Errorf("worker: compile %s: %w", report.ID, err)
	}

	var network *models.Network
	err = p.db.Transaction(func(tx *gorm.DB) error {
		n, err := networks.CreateFromGraph(tx, report.UserID, report.ID, graph)
		if err != nil {
			return err
		}
		network = n
		return reports.Complete(tx, report.ID, network.ID)
	})
	if err != nil {
		if errors.Is(err, reports.ErrTerminal) {
			// Lost the race to another delivery; nothing to persist.
			return queue.Done(p.db, task.ID)
		}
		if relErr := queue.Release(p.db, task.ID); relErr != nil {
			return fmt.Errorf("worker: release after %v: %w", err, relErr)
		}
		return fmt.Errorf("worker: persist network for %s: %w", report.ID, err)
	}

	if err := queue.Done(p.db, task.ID); err != nil {
		return err
	}
	p.notify(ctx, notify.Event{
		Title:    fmt.Sprintf("Compilation completed: %s", report.SourceName),
		Body:     fmt.Sprintf("Network %q (%d nodes, %d edges)", network.Name, network.NodeCount, network.EdgeCount),
		Severity: notify.SeveritySuccess,
	})
	return nil
}

func (p *Pool) fail(task *models.Task, report *models.Report, errText string) error {
	if err := reports.Fail(p.db, report.ID, errText); err != nil {
		if errors.Is(err, reports.ErrTerminal) {
			return queue.Done(p.db, task.ID)
		}
		return err
	}
	if err := queue.Done(p.db, task.ID); err != nil {
		return err
	}
	p.notify(context.Background(), notify.Event{
		Title:    fmt.Sprintf("Compilation failed: %s", report.SourceName),
		Body:     errText,
		Severity: notify.SeverityError,
	})
	return nil
}

// notify is best-effort; failures are logged and swallowed.
func (p *Pool) notify(ctx context.Context, evt notify.Event) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, evt); err != nil {
		log.Printf("worker: notify: %v", err)
	}
}
