package pipeline

import (
	"log/slog"
	"time"

	"github.com/visiona/rtvision/fabric"
	"github.com/visiona/rtvision/perfmon"
)

// Watchdog polices the end-to-end cycle budget. It samples the detection
// cell each period and measures the lap of every *new* detection set: the
// time from merged-frame origin to detection publish. Laps over budget are
// cycle misses - recorded and logged, never fatal, and independent of any
// stage's own deadline bookkeeping.
//
// The flawed wall-clock-modulo cycle check of earlier designs is replaced
// here by a measured lap: only elapsed time of an actual pass through the
// chain counts against the budget.
type Watchdog struct {
	budget     time.Duration
	detections *fabric.Cell[DetectionSet]
	monitor    *perfmon.Monitor
	logger     *slog.Logger

	// Touched only from the watchdog task's own sequential activations.
	lastSeq uint64
	laps    uint64
	misses  uint64
}

// NewWatchdog builds a watchdog over the detection handoff cell.
func NewWatchdog(budget time.Duration, detections *fabric.Cell[DetectionSet], monitor *perfmon.Monitor, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		budget:     budget,
		detections: detections,
		monitor:    monitor,
		logger:     logger,
	}
}

// Check is the watchdog's periodic task body.
func (w *Watchdog) Check() {
	set, seq, ok := w.detections.TryLatest()
	if !ok || seq == w.lastSeq {
		return // nothing new completed a lap since last sample
	}
	w.lastSeq = seq

	lap := set.ProducedAt.Sub(set.Origin)
	missed := lap > w.budget

	w.laps++
	if missed {
		w.misses++
		w.logger.Warn("cycle miss",
			"lap", lap,
			"budget", w.budget,
			"seq", seq)
	}
	w.monitor.Record(TaskCycle, lap, missed)

	if w.laps%100 == 0 {
		rate := float64(w.misses) / float64(w.laps) * 100.0
		w.logger.Info("cycle summary",
			"laps", w.laps,
			"missed", w.misses,
			"miss_rate_pct", rate)
	}
}

// Laps returns how many completed laps the watchdog has observed.
func (w *Watchdog) Laps() uint64 { return w.laps }

// Misses returns how many observed laps exceeded the budget.
func (w *Watchdog) Misses() uint64 { return w.misses }
