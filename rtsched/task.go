package rtsched

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod rejects a task whose period is not positive.
	ErrInvalidPeriod = errors.New("rtsched: non-positive period")
	// ErrNilBody rejects a task without a body.
	ErrNilBody = errors.New("rtsched: nil body")
	// ErrAlreadyRunning rejects Start on a running scheduler.
	ErrAlreadyRunning = errors.New("rtsched: scheduler already running")
	// ErrStartFailed wraps an underlying bind/start failure. Any tasks
	// already started were stopped before Start returned.
	ErrStartFailed = errors.New("rtsched: start failed")
)

// Task is the identity and scheduling contract for one periodic unit of
// work.
type Task struct {
	// Name uniquely identifies the task; statistics are keyed by it.
	Name string

	// Period is the fixed inter-activation interval. Must be positive.
	Period time.Duration

	// Deadline is the maximum allowed execution duration per activation.
	// Zero or negative defaults to Period. Deadlines above the period are
	// accepted but rarely meaningful.
	Deadline time.Duration

	// Priority is the fixed real-time priority (higher wins under
	// contention). Applied via the platform binder.
	Priority int

	// CPU is the single core the task is pinned to.
	CPU int

	// Body is the work executed each period. Must be non-nil. The wrapper
	// times it and treats any return as "activation completed".
	Body func()
}

// validate reports the first configuration violation, if any.
func (t Task) validate() error {
	if t.Period <= 0 {
		return fmt.Errorf("task %q: %w", t.Name, ErrInvalidPeriod)
	}
	if t.Body == nil {
		return fmt.Errorf("task %q: %w", t.Name, ErrNilBody)
	}
	return nil
}

// BindConfig carries the placement contract handed to a Binder.
type BindConfig struct {
	Name     string
	Priority int
	CPU      int
}

// Binder applies CPU affinity and real-time priority to the calling OS
// thread. Bind runs on the task's own goroutine after the thread is locked.
type Binder interface {
	Bind(cfg BindConfig) error
}
