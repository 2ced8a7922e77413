package rtsched

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visiona/rtvision/perfmon"
	"github.com/visiona/rtvision/rtsched/internal/rtos"
)

// Options configures optional scheduler collaborators.
type Options struct {
	// Monitor receives one record per activation. A fresh perfmon.Monitor
	// is created when nil.
	Monitor *perfmon.Monitor

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Binder applies platform placement. Defaults to the Linux rtos
	// substrate; tests inject fakes here.
	Binder Binder
}

// platformBinder adapts internal/rtos to the Binder capability.
type platformBinder struct{}

func (platformBinder) Bind(cfg BindConfig) error {
	return rtos.Bind(cfg.Name, cfg.Priority, cfg.CPU)
}

// Scheduler owns the full task list and polices deadlines.
type Scheduler struct {
	tasks   []Task
	monitor *perfmon.Monitor
	logger  *slog.Logger
	binder  Binder

	callback atomic.Pointer[func(string)]

	mu      sync.Mutex // guards lifecycle transitions
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates every task descriptor and builds a scheduler. The first
// violation fails construction before anything is created. Deadlines that
// are zero or negative default to the task's period.
func New(tasks []Task, opts Options) (*Scheduler, error) {
	owned := make([]Task, len(tasks))
	for i, task := range tasks {
		if err := task.validate(); err != nil {
			return nil, err
		}
		if task.Deadline <= 0 {
			task.Deadline = task.Period
		}
		owned[i] = task
	}

	monitor := opts.Monitor
	if monitor == nil {
		monitor = perfmon.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binder := opts.Binder
	if binder == nil {
		binder = platformBinder{}
	}

	return &Scheduler{
		tasks:   owned,
		monitor: monitor,
		logger:  logger,
		binder:  binder,
	}, nil
}

// Monitor returns the monitor all activations report into.
func (s *Scheduler) Monitor() *perfmon.Monitor { return s.monitor }

// Start binds and launches every task. If any bind fails, tasks already
// launched are stopped and joined before the start failure is returned.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, len(s.tasks))

	for i := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, s.tasks[i], ready)
	}

	// Every task reports its bind outcome before entering the periodic loop.
	var bindErr error
	for range s.tasks {
		if err := <-ready; err != nil && bindErr == nil {
			bindErr = err
		}
	}

	if bindErr != nil {
		cancel()
		s.wg.Wait()
		return fmt.Errorf("%w: %s", ErrStartFailed, bindErr)
	}

	s.cancel = cancel
	s.running.Store(true)
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop signals every task to finish its in-flight activation, joins all of
// them and releases scheduling resources. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.running.Store(false)
	s.logger.Info("scheduler stopped")
}

// IsRunning is true strictly between a successful Start and a Stop.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// SetDeadlineCallback replaces the miss-notification hook. The callback is
// invoked synchronously on the missing task's own execution context; a slow
// callback will itself cause cascading misses. nil clears the hook.
func (s *Scheduler) SetDeadlineCallback(fn func(name string)) {
	if fn == nil {
		s.callback.Store(nil)
		return
	}
	s.callback.Store(&fn)
}

// MonitorTask is the sole bridge into the performance monitor: it always
// records the activation, and on a miss it fires the deadline callback
// first.
func (s *Scheduler) MonitorTask(name string, elapsed time.Duration, deadlineMissed bool) {
	if deadlineMissed {
		if cb := s.callback.Load(); cb != nil {
			(*cb)(name)
		}
		s.logger.Warn("deadline miss", "task", name, "elapsed", elapsed)
	}
	s.monitor.Record(name, elapsed, deadlineMissed)
}

// TaskStats returns a snapshot for every configured task, aligned with the
// monitor's state. Tasks that have not run yet report zeroed counters.
func (s *Scheduler) TaskStats() []perfmon.TaskStats {
	stats := make([]perfmon.TaskStats, 0, len(s.tasks))
	for _, task := range s.tasks {
		ts, err := s.monitor.TaskStats(task.Name)
		if err != nil {
			ts = perfmon.TaskStats{Name: task.Name, DeadlineMeetRate: 1.0}
		}
		stats = append(stats, ts)
	}
	return stats
}

// runTask is the per-task execution context: lock the OS thread, apply
// placement, then run the WaitForPeriod -> Execute -> Measure&Report cycle
// until cancelled.
func (s *Scheduler) runTask(ctx context.Context, task Task, ready chan<- error) {
	defer s.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := s.binder.Bind(BindConfig{Name: task.Name, Priority: task.Priority, CPU: task.CPU})
	ready <- err
	if err != nil {
		return
	}

	s.logger.Info("task started",
		"task", task.Name,
		"period", task.Period,
		"deadline", task.Deadline,
		"priority", task.Priority,
		"cpu", task.CPU)

	ticker := time.NewTicker(task.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("task stopped", "task", task.Name)
			return
		case <-ticker.C:
			start := time.Now()
			task.Body()
			elapsed := time.Since(start)
			s.MonitorTask(task.Name, elapsed, elapsed > task.Deadline)
		}
	}
}
