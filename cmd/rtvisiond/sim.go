package main

import (
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/visiona/rtvision/internal/config"
	"github.com/visiona/rtvision/pipeline"
)

const (
	simWidth  = 640
	simHeight = 480
)

// simulator provides stand-in stage bodies with configurable latencies.
// Real capture and inference backends plug in through pipeline.Stages; the
// simulator exists so the scheduling behavior can be exercised without
// hardware.
type simulator struct {
	cfg    config.SimulationConfig
	logger *slog.Logger

	leftSeq  atomic.Uint64
	rightSeq atomic.Uint64
	reported atomic.Uint64
}

func newSimulator(cfg config.SimulationConfig, logger *slog.Logger) *simulator {
	return &simulator{cfg: cfg, logger: logger}
}

func (s *simulator) Stages() pipeline.Stages {
	return pipeline.Stages{
		CaptureLeft:  func() (pipeline.Frame, bool) { return s.capture(&s.leftSeq), true },
		CaptureRight: func() (pipeline.Frame, bool) { return s.capture(&s.rightSeq), true },
		Preprocess:   s.preprocess,
		Infer:        s.infer,
		Report:       s.report,
	}
}

// burn simulates a stage's compute with ~10% latency jitter.
func burn(baseMS int) {
	if baseMS <= 0 {
		return
	}
	base := time.Duration(baseMS) * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(base)/5+1)) - base/10
	time.Sleep(base + jitter)
}

func (s *simulator) capture(seq *atomic.Uint64) pipeline.Frame {
	burn(s.cfg.CaptureLatencyMS)
	return pipeline.Frame{
		Data:      make([]byte, simWidth*simHeight),
		Width:     simWidth,
		Height:    simHeight,
		Timestamp: time.Now(),
		Seq:       seq.Add(1),
	}
}

func (s *simulator) preprocess(view pipeline.MergedFrame) (pipeline.Tensor, bool) {
	burn(s.cfg.PreprocessLatencyMS)
	return pipeline.Tensor{
		Data:   make([]float32, simWidth*simHeight),
		Width:  simWidth,
		Height: simHeight,
	}, true
}

func (s *simulator) infer(t pipeline.Tensor) ([]pipeline.Detection, bool) {
	burn(s.cfg.InferenceLatencyMS)
	n := rand.Intn(4)
	detections := make([]pipeline.Detection, n)
	for i := range detections {
		detections[i] = pipeline.Detection{
			Label:      "person",
			Confidence: 0.5 + rand.Float64()/2,
			X:          rand.Intn(t.Width),
			Y:          rand.Intn(t.Height),
			W:          64,
			H:          128,
		}
	}
	return detections, true
}

func (s *simulator) report(set pipeline.DetectionSet) {
	n := s.reported.Add(1)
	if n%50 == 0 {
		s.logger.Debug("detections reported",
			"sets", n,
			"count", len(set.Detections),
			"lap", set.ProducedAt.Sub(set.Origin))
	}
}
