package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/belfry-bio/belfry/internal/compiler"
	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/notify"
	"github.com/belfry-bio/belfry/internal/queue"
	"github.com/belfry-bio/belfry/internal/reports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A second pooled connection would see a separate empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.Network{},
		&models.Edge{},
		&models.Citation{},
		&models.EdgeVote{},
		&models.Task{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	u := models.User{Name: "Ada", Email: "ada@example.org"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return db
}

// fakeCompiler returns canned results keyed by source name.
type fakeCompiler struct {
	mu    sync.Mutex
	calls int
	graph *compiler.Graph
	err   error
}

func (f *fakeCompiler) Compile(_ context.Context, sourceName string, _ []byte) (*compiler.Graph, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.graph != nil {
		return f.graph, nil
	}
	return &compiler.Graph{
		Name:  sourceName,
		Nodes: []string{"a", "b"},
		Edges: []compiler.Edge{{Source: "a", Relation: "increases", Target: "b"}},
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, evt notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func newTestPool(t *testing.T, db *gorm.DB, comp compiler.Compiler, n notify.Notifier) *Pool {
	t.Helper()
	pool, err := NewPool(Opts{DB: db, Compiler: comp, Notifier: n, Concurrency: 1, PollInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func createReport(t *testing.T, db *gorm.DB, name string) *models.Report {
	t.Helper()
	report, err := reports.Create(db, 1, name, []byte("SET DOCUMENT Name = x"))
	if err != nil {
		t.Fatal(err)
	}
	return report
}

func TestNewPool_Validation(t *testing.T) {
	if _, err := NewPool(Opts{}); err == nil {
		t.Error("expected error for missing db")
	}
	db := openTestDB(t)
	if _, err := NewPool(Opts{DB: db}); err == nil {
		t.Error("expected error for missing compiler")
	}
}

func TestProcess_Success(t *testing.T) {
	db := openTestDB(t)
	notifier := &recordingNotifier{}
	pool := newTestPool(t, db, &fakeCompiler{}, notifier)

	report := createReport(t, db, "corpus.bel")
	task, err := queue.Claim(db)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := reports.Get(db, report.ID)
	if stored.Status != models.ReportCompleted {
		t.Errorf("Status = %q, want completed", stored.Status)
	}
	if stored.NetworkID == nil {
		t.Fatal("NetworkID not linked")
	}

	var network models.Network
	if err := db.Where("id = ?", *stored.NetworkID).First(&network).Error; err != nil {
		t.Fatalf("network missing: %v", err)
	}
	if network.UserID != stored.UserID {
		t.Errorf("network UserID = %d, want uploader %d", network.UserID, stored.UserID)
	}

	var taskRow models.Task
	db.First(&taskRow, task.ID)
	if taskRow.State != models.TaskDone {
		t.Errorf("task State = %q, want done", taskRow.State)
	}

	if len(notifier.events) != 1 || notifier.events[0].Severity != notify.SeveritySuccess {
		t.Errorf("events = %+v, want one success", notifier.events)
	}
}

func TestProcess_SemanticFailure(t *testing.T) {
	db := openTestDB(t)
	notifier := &recordingNotifier{}
	comp := &fakeCompiler{err: &compiler.CompileError{Output: "line 4: naked name"}}
	pool := newTestPool(t, db, comp, notifier)

	report := createReport(t, db, "bad.bel")
	task, _ := queue.Claim(db)

	if err := pool.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := reports.Get(db, report.ID)
	if stored.Status != models.ReportFailed {
		t.Errorf("Status = %q, want failed", stored.Status)
	}
	if !strings.Contains(stored.Error, "naked name") {
		t.Errorf("Error = %q, want compiler diagnostic", stored.Error)
	}

	// Semantic failures are terminal: nothing left on the queue.
	if _, err := queue.Claim(db); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("claim after failure = %v, want empty queue", err)
	}

	if len(notifier.events) != 1 || notifier.events[0].Severity != notify.SeverityError {
		t.Errorf("events = %+v, want one error event", notifier.events)
	}
}

func TestProcess_InfrastructureFailureRequeues(t *testing.T) {
	db := openTestDB(t)
	comp := &fakeCompiler{err: errors.New("broker unreachable")}
	pool := newTestPool(t, db, comp, nil)

	report := createReport(t, db, "slow.bel")
	task, _ := queue.Claim(db)

	err := pool.Process(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for infrastructure failure")
	}

	// Report untouched: still pending, no error text.
	stored, _ := reports.Get(db, report.ID)
	if stored.Status != models.ReportPending {
		t.Errorf("Status = %q, want pending", stored.Status)
	}
	if stored.Error != "" {
		t.Errorf("Error = %q, want empty", stored.Error)
	}

	// Task back on the queue for another worker.
	again, err := queue.Claim(db)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if again.ID != task.ID {
		t.Errorf("reclaimed %d, want %d", again.ID, task.ID)
	}
}

func TestProcess_RedeliveryIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	pool := newTestPool(t, db, &fakeCompiler{}, nil)

	report := createReport(t, db, "corpus.bel")
	task, _ := queue.Claim(db)
	if err := pool.Process(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	// Simulate at-least-once redelivery of the same report.
	dup, err := queue.Enqueue(db, report.ID)
	if err != nil {
		t.Fatal(err)
	}
	claimed, _ := queue.Claim(db)
	if claimed.ID != dup.ID {
		t.Fatalf("claimed %d, want duplicate %d", claimed.ID, dup.ID)
	}
	if err := pool.Process(context.Background(), claimed); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	var count int64
	db.Model(&models.Network{}).Where("report_id = ?", report.ID).Count(&count)
	if count != 1 {
		t.Errorf("networks for report = %d, want exactly 1", count)
	}

	stored, _ := reports.Get(db, report.ID)
	if stored.Status != models.ReportCompleted {
		t.Errorf("Status = %q, want completed", stored.Status)
	}
}

func TestProcess_MissingReportDropsTask(t *testing.T) {
	db := openTestDB(t)
	pool := newTestPool(t, db, &fakeCompiler{}, nil)

	if _, err := queue.Enqueue(db, "ghost-report"); err != nil {
		t.Fatal(err)
	}
	task, _ := queue.Claim(db)

	if err := pool.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stored models.Task
	db.First(&stored, task.ID)
	if stored.State != models.TaskDone {
		t.Errorf("task State = %q, want done", stored.State)
	}
}

func TestRun_DrainsQueue(t *testing.T) {
	db := openTestDB(t)
	comp := &fakeCompiler{}
	pool := newTestPool(t, db, comp, nil)

	for _, name := range []string{"a.bel", "b.bel", "c.bel"} {
		createReport(t, db, name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		var remaining int64
		db.Model(&models.Report{}).Where("status = ?", models.ReportPending).Count(&remaining)
		if remaining == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("queue not drained, %d pending", remaining)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop on cancel")
	}
}
