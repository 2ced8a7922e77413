package monitor

import (
	"errors"
	"time"
)

// Internal errors - mapped to public errors in perfmon package
var (
	ErrTaskNotFound       = errors.New("perfmon: task not found")
	ErrInvalidMeasurement = errors.New("perfmon: no matching start for measurement")
)

// DefaultBucketWidth is the default histogram granularity.
const DefaultBucketWidth = 100 * time.Microsecond

// Token identifies one in-flight measurement.
type Token struct {
	id    uint64
	start time.Time
}

// Start returns the timestamp captured when the measurement began.
func (t Token) Start() time.Time { return t.start }

// Measurement is one completed timed interval for a task activation.
type Measurement struct {
	// Name of the task this activation belongs to.
	Name string

	// Start and End bound the measured interval (wall clock).
	Start time.Time
	End   time.Time

	// Elapsed is End - Start.
	Elapsed time.Duration

	// Deadline is the budget this activation was checked against.
	// Zero when the measurement was ended without a deadline.
	Deadline time.Duration

	// DeadlineMissed is true when Deadline > 0 and Elapsed > Deadline.
	DeadlineMissed bool
}

// TaskStats is a snapshot of aggregated counters for one task name.
//
// Invariant: TotalExecutions == sum of Histogram counts, and
// MissedDeadlines <= TotalExecutions.
type TaskStats struct {
	// Name of the task.
	Name string

	// TotalExecutions counts recorded activations (monotonic until reset).
	TotalExecutions uint64

	// MissedDeadlines counts activations whose elapsed time exceeded
	// their deadline.
	MissedDeadlines uint64

	// AverageExecutionTime is the running mean in microseconds.
	AverageExecutionTime float64

	// MaxExecutionTime is the running maximum in microseconds.
	MaxExecutionTime float64

	// Jitter is the standard deviation of execution time around the mean,
	// in microseconds. Non-negative, grows with variance.
	Jitter float64

	// DeadlineMeetRate is 1 - MissedDeadlines/TotalExecutions.
	// 1.0 when nothing has been recorded yet.
	DeadlineMeetRate float64

	// Histogram maps duration bucket (lower bound, truncated to the
	// monitor's bucket width) to occurrence count.
	Histogram map[time.Duration]uint64
}
