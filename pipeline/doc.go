// Package pipeline wires the sensor-processing stage chain through the
// synchronization fabric and polices the end-to-end cycle budget.
//
// # Stage chain
//
// A fixed ordering of periodic stages:
//
//	left capture ─┐
//	              ├─> merged frame ─> preprocess ─> inference ─> report
//	right capture ┘        (Buffer)      (Cell)        (Cell)
//
// Left and right capture compose one merged stereo view inside a shared
// fabric.Buffer; the right capture completes the pair and publishes the
// snapshot to the downstream handoff cell. Each downstream stage waits on
// its cell bounded by a fraction of its own deadline - a non-responding
// upstream means "no new data this period", never an unbounded block - then
// processes strictly outside the lock.
//
// The actual capture, preprocessing, inference and reporting work is opaque
// to this package: callers supply it as Stages funcs, and the scheduler
// wrapper times every activation regardless of business-level success.
//
// # Cycle watchdog
//
// A separate periodic task samples each newly produced detection set and
// measures its lap - the time from merged-frame origin to detection publish
// - against the overall cycle budget. A lap over budget is a cycle miss:
// recorded under the reserved task name "cycle", logged, never fatal. This
// is deliberately independent of any individual stage's own deadline
// bookkeeping.
package pipeline
