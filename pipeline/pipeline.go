package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/visiona/rtvision/fabric"
	"github.com/visiona/rtvision/perfmon"
	"github.com/visiona/rtvision/rtsched"
)

// Pipeline owns the fabric chaining the stage bodies together. No stage
// retains a reference to a shared artifact past its own activation; all
// handoff state lives here, not in package globals.
type Pipeline struct {
	cfg    Config
	stages Stages
	logger *slog.Logger

	merged       *fabric.Buffer[MergedFrame]
	mergedReady  *fabric.Cell[MergedFrame]
	preprocessed *fabric.Cell[Tensor]
	detections   *fabric.Cell[DetectionSet]

	watchdog *Watchdog

	// Per-consumer cursors. Each is touched only by its own stage task,
	// whose activations are strictly sequential.
	preprocessSeq uint64
	inferSeq      uint64
}

// New builds a pipeline around the given stage bodies. Cycle laps and
// misses are recorded into monitor under the "cycle" task name.
func New(cfg Config, stages Stages, monitor *perfmon.Monitor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CycleBudget <= 0 {
		cfg.CycleBudget = cfg.LeftCapture.Period + cfg.RightCapture.Period +
			cfg.Preprocess.Period + cfg.Inference.Period +
			cfg.Watchdog.Period + cfg.Report.Period
	}

	p := &Pipeline{
		cfg:          cfg,
		stages:       stages,
		logger:       logger,
		merged:       fabric.NewBuffer[MergedFrame](),
		mergedReady:  fabric.NewCell[MergedFrame](),
		preprocessed: fabric.NewCell[Tensor](),
		detections:   fabric.NewCell[DetectionSet](),
	}
	p.watchdog = NewWatchdog(cfg.CycleBudget, p.detections, monitor, logger)
	return p
}

// Tasks returns the full task list for the scheduler, in chain order.
func (p *Pipeline) Tasks() []rtsched.Task {
	return []rtsched.Task{
		p.task(TaskLeftCamera, p.cfg.LeftCapture, p.captureLeft),
		p.task(TaskRightCamera, p.cfg.RightCapture, p.captureRight),
		p.task(TaskPreprocess, p.cfg.Preprocess, p.preprocess),
		p.task(TaskInference, p.cfg.Inference, p.infer),
		p.task(TaskWatchdog, p.cfg.Watchdog, p.watchdog.Check),
		p.task(TaskReport, p.cfg.Report, p.report),
	}
}

func (p *Pipeline) task(name string, timing StageTiming, body func()) rtsched.Task {
	return rtsched.Task{
		Name:     name,
		Period:   timing.Period,
		Deadline: timing.Deadline,
		Priority: timing.Priority,
		CPU:      timing.CPU,
		Body:     body,
	}
}

// Close releases the fabric, waking any stage blocked on a handoff cell.
func (p *Pipeline) Close() {
	p.mergedReady.Close()
	p.preprocessed.Close()
	p.detections.Close()
}

// captureLeft stores the left half of the stereo view.
func (p *Pipeline) captureLeft() {
	frame, ok := p.stages.CaptureLeft()
	if !ok {
		return
	}
	p.merged.Update(func(m *MergedFrame) { m.Left = frame })
}

// captureRight completes the stereo pair and publishes the merged snapshot
// downstream. The right capture is the publisher so a half-updated view is
// never handed off.
func (p *Pipeline) captureRight() {
	frame, ok := p.stages.CaptureRight()
	if !ok {
		return
	}
	now := time.Now()
	p.merged.Update(func(m *MergedFrame) {
		m.Right = frame
		m.CapturedAt = now
	})
	p.mergedReady.Set(p.merged.Snapshot())
}

// waitBudget bounds a stage's blocking wait so it can never ride past its
// own deadline: half the deadline, leaving the other half for work.
func waitBudget(timing StageTiming) time.Duration {
	deadline := timing.Deadline
	if deadline <= 0 {
		deadline = timing.Period
	}
	return deadline / 2
}

// preprocess waits (bounded) for a fresh merged frame, then transforms it
// outside the lock and hands the tensor downstream.
func (p *Pipeline) preprocess() {
	ctx, cancel := context.WithTimeout(context.Background(), waitBudget(p.cfg.Preprocess))
	defer cancel()

	view, seq, err := p.mergedReady.AwaitNext(ctx, p.preprocessSeq)
	if err != nil {
		return // no new data this period
	}
	p.preprocessSeq = seq

	tensor, ok := p.stages.Preprocess(view)
	if !ok {
		return
	}
	tensor.Origin = view.CapturedAt
	p.preprocessed.Set(tensor)
}

// infer waits (bounded) for a fresh tensor and publishes the detections.
func (p *Pipeline) infer() {
	ctx, cancel := context.WithTimeout(context.Background(), waitBudget(p.cfg.Inference))
	defer cancel()

	tensor, seq, err := p.preprocessed.AwaitNext(ctx, p.inferSeq)
	if err != nil {
		return
	}
	p.inferSeq = seq

	results, ok := p.stages.Infer(tensor)
	if !ok {
		return
	}
	p.detections.Set(DetectionSet{
		Detections: results,
		Origin:     tensor.Origin,
		ProducedAt: time.Now(),
	})
}

// report hands the freshest detection set to the reporting sink. It never
// blocks: a slow chain simply means the same set is reported again, an
// intermediate set may be skipped entirely.
func (p *Pipeline) report() {
	set, _, ok := p.detections.TryLatest()
	if !ok {
		return
	}
	p.stages.Report(set)
}
