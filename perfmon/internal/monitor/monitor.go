// Package monitor implements the perfmon statistics engine.
//
// This package is INTERNAL - clients MUST use the public API in the parent
// package.
package monitor

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// taskEntry holds the mutable aggregate for one task name.
//
// Each entry owns its own mutex so measurements for unrelated tasks never
// contend. Running mean and variance use Welford's incremental form; all
// duration math is done in microseconds (float64).
type taskEntry struct {
	mu sync.Mutex

	total  uint64
	missed uint64

	mean float64 // running mean (µs)
	m2   float64 // Welford sum of squared deltas
	max  float64 // running maximum (µs)

	histogram map[time.Duration]uint64

	// pending tracks outstanding measurement tokens for this name.
	// Ending a token not present here is an invalid measurement.
	pending map[uint64]struct{}
}

func newTaskEntry() *taskEntry {
	return &taskEntry{
		histogram: make(map[time.Duration]uint64),
		pending:   make(map[uint64]struct{}),
	}
}

// Monitor records and serves execution-time statistics per task name.
type Monitor struct {
	bucketWidth time.Duration
	tokenSeq    atomic.Uint64

	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

// New creates a Monitor (called by the public constructors in the parent
// package). Widths <= 0 fall back to DefaultBucketWidth.
func New(bucketWidth time.Duration) *Monitor {
	if bucketWidth <= 0 {
		bucketWidth = DefaultBucketWidth
	}
	return &Monitor{
		bucketWidth: bucketWidth,
		tasks:       make(map[string]*taskEntry),
	}
}

// entry returns the aggregate for name, creating it lazily on first use.
func (m *Monitor) entry(name string) *taskEntry {
	m.mu.RLock()
	e, ok := m.tasks[name]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.tasks[name]; ok {
		return e
	}
	e = newTaskEntry()
	m.tasks[name] = e
	return e
}

// lookup returns the aggregate for name without creating it.
func (m *Monitor) lookup(name string) (*taskEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tasks[name]
	return e, ok
}

// StartMeasurement records a start timestamp for one activation of name and
// returns a single-use token. Safe for concurrent use, including for the
// same name.
func (m *Monitor) StartMeasurement(name string) Token {
	tok := Token{id: m.tokenSeq.Add(1), start: time.Now()}

	e := m.entry(name)
	e.mu.Lock()
	e.pending[tok.id] = struct{}{}
	e.mu.Unlock()

	return tok
}

// EndMeasurement completes a measurement without deadline checking.
func (m *Monitor) EndMeasurement(name string, tok Token) (Measurement, error) {
	return m.EndMeasurementDeadline(name, tok, 0)
}

// EndMeasurementDeadline completes a measurement and updates the aggregate
// for name: total, miss count (when deadline > 0 and exceeded), running
// mean, maximum, jitter and histogram bucket - all under one entry lock.
//
// Returns ErrInvalidMeasurement when tok does not correspond to a prior
// StartMeasurement for name (including a token ended twice).
func (m *Monitor) EndMeasurementDeadline(name string, tok Token, deadline time.Duration) (Measurement, error) {
	end := time.Now()

	e, ok := m.lookup(name)
	if !ok {
		return Measurement{}, ErrInvalidMeasurement
	}

	elapsed := end.Sub(tok.start)
	missed := deadline > 0 && elapsed > deadline

	e.mu.Lock()
	if _, ok := e.pending[tok.id]; !ok {
		e.mu.Unlock()
		return Measurement{}, ErrInvalidMeasurement
	}
	delete(e.pending, tok.id)
	e.record(elapsed, missed, m.bucketWidth)
	e.mu.Unlock()

	return Measurement{
		Name:           name,
		Start:          tok.start,
		End:            end,
		Elapsed:        elapsed,
		Deadline:       deadline,
		DeadlineMissed: missed,
	}, nil
}

// Record feeds an externally measured activation into the aggregate for
// name. This is the scheduler bridge: it always records, hit or miss.
func (m *Monitor) Record(name string, elapsed time.Duration, deadlineMissed bool) {
	e := m.entry(name)
	e.mu.Lock()
	e.record(elapsed, deadlineMissed, m.bucketWidth)
	e.mu.Unlock()
}

// record updates the aggregate. Caller holds e.mu.
func (e *taskEntry) record(elapsed time.Duration, missed bool, bucketWidth time.Duration) {
	us := float64(elapsed.Nanoseconds()) / 1e3

	e.total++
	if missed {
		e.missed++
	}

	delta := us - e.mean
	e.mean += delta / float64(e.total)
	e.m2 += delta * (us - e.mean)

	if us > e.max {
		e.max = us
	}

	bucket := elapsed.Truncate(bucketWidth)
	if bucket < 0 {
		bucket = 0
	}
	e.histogram[bucket]++
}

// snapshot copies the aggregate out. Caller holds e.mu.
func (e *taskEntry) snapshot(name string) TaskStats {
	stats := TaskStats{
		Name:             name,
		TotalExecutions:  e.total,
		MissedDeadlines:  e.missed,
		MaxExecutionTime: e.max,
		DeadlineMeetRate: 1.0,
		Histogram:        make(map[time.Duration]uint64, len(e.histogram)),
	}
	if e.total > 0 {
		stats.AverageExecutionTime = e.mean
		stats.Jitter = math.Sqrt(e.m2 / float64(e.total))
		stats.DeadlineMeetRate = 1.0 - float64(e.missed)/float64(e.total)
	}
	for bucket, count := range e.histogram {
		stats.Histogram[bucket] = count
	}
	return stats
}

// TaskStats returns a snapshot for name, or ErrTaskNotFound.
func (m *Monitor) TaskStats(name string) (TaskStats, error) {
	e, ok := m.lookup(name)
	if !ok {
		return TaskStats{}, ErrTaskNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(name), nil
}

// AllTaskStats returns snapshots for every tracked name. Order is not
// specified.
func (m *Monitor) AllTaskStats() []TaskStats {
	m.mu.RLock()
	names := make([]string, 0, len(m.tasks))
	entries := make([]*taskEntry, 0, len(m.tasks))
	for name, e := range m.tasks {
		names = append(names, name)
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	stats := make([]TaskStats, 0, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		stats = append(stats, e.snapshot(names[i]))
		e.mu.Unlock()
	}
	return stats
}

// HasTask reports whether name has ever been measured. Never fails.
func (m *Monitor) HasTask(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// ResetStatistics zeroes all counters for name in place. The entry stays
// registered and in-flight tokens remain valid. Unknown names are a no-op.
func (m *Monitor) ResetStatistics(name string) {
	e, ok := m.lookup(name)
	if !ok {
		return
	}

	e.mu.Lock()
	e.total = 0
	e.missed = 0
	e.mean = 0
	e.m2 = 0
	e.max = 0
	e.histogram = make(map[time.Duration]uint64)
	e.mu.Unlock()
}

// Histogram returns a copy of the bucket-to-count mapping for name.
// The sum of counts equals TotalExecutions.
func (m *Monitor) Histogram(name string) (map[time.Duration]uint64, error) {
	stats, err := m.TaskStats(name)
	if err != nil {
		return nil, err
	}
	return stats.Histogram, nil
}
