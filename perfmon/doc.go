// Package perfmon provides thread-safe execution-time statistics for named tasks.
//
// # Overview
//
// A Monitor tracks per-task execution statistics derived from timed
// measurements: totals, deadline misses, running mean, maximum, jitter and an
// execution-time histogram. It is the accounting half of a real-time pipeline:
// task wrappers feed it one measurement per activation, reporting layers read
// snapshots out of it.
//
// # Basic Usage
//
// Measure a task activation with the token API:
//
//	mon := perfmon.New()
//
//	tok := mon.StartMeasurement("inference")
//	runInference()
//	m, err := mon.EndMeasurementDeadline("inference", tok, 220*time.Millisecond)
//
// Or record an externally measured activation directly (the scheduler bridge):
//
//	mon.Record("inference", elapsed, elapsed > deadline)
//
// # Snapshots
//
// Reads return copies, never live views:
//
//	stats, err := mon.TaskStats("inference")
//	fmt.Printf("%d runs, %d missed, avg %.0fµs, jitter %.0fµs\n",
//	    stats.TotalExecutions, stats.MissedDeadlines,
//	    stats.AverageExecutionTime, stats.Jitter)
//
// # Thread Safety
//
// All operations are thread-safe. Mutations for one task name are serialized;
// different names are tracked by independent entries and never contend beyond
// the brief registry lookup.
//
// # Errors
//
//   - ErrInvalidMeasurement: EndMeasurement with a token that has no matching
//     prior StartMeasurement for that name (or a token ended twice).
//   - ErrTaskNotFound: statistics query for a name that was never measured.
package perfmon
