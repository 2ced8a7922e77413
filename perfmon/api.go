package perfmon

import (
	"time"

	"github.com/visiona/rtvision/perfmon/internal/monitor"
)

// Public API - Re-export internal types as stable contract

// Token identifies one in-flight measurement started by StartMeasurement.
// Tokens are single-use: ending the same token twice is an error.
type Token = monitor.Token

// Measurement is one completed (start, end, deadline?) triple for a task
// activation. Consumed by the caller; the monitor does not retain it.
type Measurement = monitor.Measurement

// TaskStats is a snapshot of aggregated statistics for one task name.
type TaskStats = monitor.TaskStats

// Monitor records and serves execution-time statistics per task name.
type Monitor = monitor.Monitor

// DefaultBucketWidth is the histogram granularity used by New.
const DefaultBucketWidth = monitor.DefaultBucketWidth

// Public API errors - Re-export internal errors as stable contract
var (
	ErrTaskNotFound       = monitor.ErrTaskNotFound
	ErrInvalidMeasurement = monitor.ErrInvalidMeasurement
)

// New creates a Monitor with the default histogram bucket width.
func New() *Monitor {
	return monitor.New(DefaultBucketWidth)
}

// NewWithBucketWidth creates a Monitor with a custom histogram granularity.
// Widths <= 0 fall back to DefaultBucketWidth.
func NewWithBucketWidth(width time.Duration) *Monitor {
	return monitor.New(width)
}
