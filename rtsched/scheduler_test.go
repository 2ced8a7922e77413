package rtsched

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/visiona/rtvision/perfmon"
)

// fakeBinder records bind requests and optionally fails for one task.
type fakeBinder struct {
	mu      sync.Mutex
	bound   []BindConfig
	failFor string
	bindErr error
}

func (b *fakeBinder) Bind(cfg BindConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.Name == b.failFor {
		return b.bindErr
	}
	b.bound = append(b.bound, cfg)
	return nil
}

func (b *fakeBinder) boundNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.bound))
	for i, cfg := range b.bound {
		names[i] = cfg.Name
	}
	return names
}

func testTasks(body func()) []Task {
	if body == nil {
		body = func() {}
	}
	return []Task{
		{Name: "TestTask1", Period: 10 * time.Millisecond, Deadline: 9 * time.Millisecond, Priority: 99, CPU: 1, Body: body},
		{Name: "TestTask2", Period: 20 * time.Millisecond, Deadline: 18 * time.Millisecond, Priority: 98, CPU: 2, Body: body},
	}
}

// TestNewValidation verifies construction fails on the first violation and
// succeeds for a valid list.
func TestNewValidation(t *testing.T) {
	if _, err := New(testTasks(nil), Options{Binder: &fakeBinder{}}); err != nil {
		t.Fatalf("Valid task list rejected: %v", err)
	}

	t.Run("non-positive period", func(t *testing.T) {
		tasks := testTasks(nil)
		tasks[0].Period = 0
		_, err := New(tasks, Options{})
		if !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("Expected ErrInvalidPeriod, got %v", err)
		}
	})

	t.Run("nil body", func(t *testing.T) {
		tasks := testTasks(nil)
		tasks[1].Body = nil
		_, err := New(tasks, Options{})
		if !errors.Is(err, ErrNilBody) {
			t.Errorf("Expected ErrNilBody, got %v", err)
		}
	})

	t.Run("deadline defaults to period", func(t *testing.T) {
		tasks := testTasks(nil)
		tasks[0].Deadline = 0
		sched, err := New(tasks, Options{Binder: &fakeBinder{}})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if sched.tasks[0].Deadline != tasks[0].Period {
			t.Errorf("Deadline = %v, want period %v", sched.tasks[0].Deadline, tasks[0].Period)
		}
	})
}

// TestStartStop verifies the lifecycle: binding, IsRunning transitions,
// idempotent Stop and that no task body runs after Stop returns.
func TestStartStop(t *testing.T) {
	var executions atomic.Uint64
	binder := &fakeBinder{}
	sched, err := New(testTasks(func() { executions.Add(1) }), Options{Binder: binder})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if sched.IsRunning() {
		t.Error("IsRunning true before Start")
	}

	if err := sched.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Error("IsRunning false after Start")
	}
	if err := sched.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Second Start: expected ErrAlreadyRunning, got %v", err)
	}
	if got := len(binder.boundNames()); got != 2 {
		t.Errorf("Expected 2 bind calls, got %d", got)
	}

	time.Sleep(100 * time.Millisecond)
	sched.Stop()
	if sched.IsRunning() {
		t.Error("IsRunning true after Stop")
	}

	// Joined means no further activations.
	after := executions.Load()
	time.Sleep(50 * time.Millisecond)
	if executions.Load() != after {
		t.Error("Task body executed after Stop returned")
	}
	if after == 0 {
		t.Error("Tasks never executed while running")
	}

	sched.Stop() // idempotent
}

// TestStartRollback verifies a bind failure stops already-started tasks and
// surfaces a start failure.
func TestStartRollback(t *testing.T) {
	var executions atomic.Uint64
	binder := &fakeBinder{failFor: "TestTask2", bindErr: errors.New("sched_setattr: operation not permitted")}
	sched, err := New(testTasks(func() { executions.Add(1) }), Options{Binder: binder})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := sched.Start(); !errors.Is(err, ErrStartFailed) {
		t.Fatalf("Expected ErrStartFailed, got %v", err)
	}
	if sched.IsRunning() {
		t.Error("IsRunning true after failed Start")
	}

	after := executions.Load()
	time.Sleep(50 * time.Millisecond)
	if executions.Load() != after {
		t.Error("Rolled-back task still executing")
	}
}

// TestMonitorTaskBridge verifies the bridge always records and fires the
// callback exactly once per miss, never on a hit.
func TestMonitorTaskBridge(t *testing.T) {
	monitor := perfmon.New()
	sched, err := New(testTasks(nil), Options{Binder: &fakeBinder{}, Monitor: monitor})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var missCount atomic.Uint64
	sched.SetDeadlineCallback(func(name string) {
		if name != "TestTask1" {
			t.Errorf("Callback for wrong task %q", name)
		}
		missCount.Add(1)
	})

	// 100 activations at 11ms against a 9ms deadline: all miss.
	for i := 0; i < 100; i++ {
		sched.MonitorTask("TestTask1", 11*time.Millisecond, true)
	}
	// Hits never fire the callback.
	for i := 0; i < 50; i++ {
		sched.MonitorTask("TestTask2", time.Millisecond, false)
	}

	if missCount.Load() != 100 {
		t.Errorf("Callback fired %d times, want 100", missCount.Load())
	}

	stats, err := monitor.TaskStats("TestTask1")
	if err != nil {
		t.Fatalf("TaskStats failed: %v", err)
	}
	if stats.TotalExecutions != 100 || stats.MissedDeadlines != 100 {
		t.Errorf("Expected 100/100 executions/misses, got %d/%d",
			stats.TotalExecutions, stats.MissedDeadlines)
	}
	if stats.AverageExecutionTime < 10900 || stats.AverageExecutionTime > 11100 {
		t.Errorf("Expected mean ~11000µs, got %.1f", stats.AverageExecutionTime)
	}

	hit, _ := monitor.TaskStats("TestTask2")
	if hit.TotalExecutions != 50 || hit.MissedDeadlines != 0 {
		t.Errorf("Expected 50/0 for TestTask2, got %d/%d",
			hit.TotalExecutions, hit.MissedDeadlines)
	}
}

// TestTaskStatsAlignment verifies TaskStats covers every configured task,
// including ones that have not run.
func TestTaskStatsAlignment(t *testing.T) {
	sched, err := New(testTasks(nil), Options{Binder: &fakeBinder{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sched.MonitorTask("TestTask1", time.Millisecond, false)

	stats := sched.TaskStats()
	if len(stats) != 2 {
		t.Fatalf("Expected stats for 2 tasks, got %d", len(stats))
	}
	byName := map[string]perfmon.TaskStats{}
	for _, ts := range stats {
		byName[ts.Name] = ts
	}
	if byName["TestTask1"].TotalExecutions != 1 {
		t.Errorf("TestTask1 executions = %d, want 1", byName["TestTask1"].TotalExecutions)
	}
	if byName["TestTask2"].TotalExecutions != 0 {
		t.Errorf("TestTask2 executions = %d, want 0", byName["TestTask2"].TotalExecutions)
	}
	if byName["TestTask2"].DeadlineMeetRate != 1.0 {
		t.Errorf("Idle task meet rate = %.2f, want 1.0", byName["TestTask2"].DeadlineMeetRate)
	}
}

// TestSustainedOverrun verifies live behavior under a body that always
// overruns its deadline: every activation is a miss, the system keeps
// running and the mean reflects the body duration.
func TestSustainedOverrun(t *testing.T) {
	monitor := perfmon.New()
	tasks := []Task{{
		Name:     "overrun",
		Period:   10 * time.Millisecond,
		Deadline: 9 * time.Millisecond,
		Priority: 99,
		CPU:      0,
		Body:     func() { time.Sleep(11 * time.Millisecond) },
	}}
	sched, err := New(tasks, Options{Binder: &fakeBinder{}, Monitor: monitor})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var callbackFires atomic.Uint64
	sched.SetDeadlineCallback(func(string) { callbackFires.Add(1) })

	if err := sched.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	sched.Stop()

	stats, err := monitor.TaskStats("overrun")
	if err != nil {
		t.Fatalf("TaskStats failed: %v", err)
	}
	if stats.TotalExecutions == 0 {
		t.Fatal("No activations recorded")
	}
	if stats.MissedDeadlines != stats.TotalExecutions {
		t.Errorf("Expected every activation to miss: %d/%d",
			stats.MissedDeadlines, stats.TotalExecutions)
	}
	if callbackFires.Load() != stats.TotalExecutions {
		t.Errorf("Callback fired %d times for %d misses",
			callbackFires.Load(), stats.TotalExecutions)
	}
	// Sleep granularity pads the body; the mean must at least cover it.
	if stats.AverageExecutionTime < 11000 || stats.AverageExecutionTime > 30000 {
		t.Errorf("Mean %.0fµs outside plausible range for an 11ms body",
			stats.AverageExecutionTime)
	}

	var histTotal uint64
	hist, err := monitor.Histogram("overrun")
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}
	for _, count := range hist {
		histTotal += count
	}
	if histTotal != stats.TotalExecutions {
		t.Errorf("Histogram sum %d != executions %d", histTotal, stats.TotalExecutions)
	}
}
