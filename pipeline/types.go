package pipeline

import "time"

// Frame is one captured sensor frame. Data is shared by reference and must
// not be modified after capture (immutability contract).
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
	Seq       uint64
}

// MergedFrame is the stereo view composed from both captures. CapturedAt is
// the lap origin: the instant the pair was completed and published.
type MergedFrame struct {
	Left       Frame
	Right      Frame
	CapturedAt time.Time
}

// Tensor is a preprocessed frame ready for inference. Origin carries the
// merged frame's lap origin through the chain.
type Tensor struct {
	Data   []float32
	Width  int
	Height int
	Origin time.Time
}

// Detection is one detected object.
type Detection struct {
	Label      string
	Confidence float64
	X, Y, W, H int
}

// DetectionSet is the chain's terminal artifact. ProducedAt - Origin is the
// lap time the cycle watchdog checks against the cycle budget.
type DetectionSet struct {
	Detections []Detection
	Origin     time.Time
	ProducedAt time.Time
}

// Stage bodies are external collaborators: the pipeline invokes and times
// them without inspecting their internals. ok=false means "no artifact this
// period" and is not a fault.
type (
	// CaptureFunc produces one frame per activation.
	CaptureFunc func() (Frame, bool)

	// PreprocessFunc turns a merged stereo view into an inference tensor.
	PreprocessFunc func(MergedFrame) (Tensor, bool)

	// InferFunc runs detection over a tensor.
	InferFunc func(Tensor) ([]Detection, bool)

	// ReportFunc consumes the freshest detection set (display, telemetry).
	ReportFunc func(DetectionSet)
)

// Stages bundles the opaque work bodies the pipeline chains together.
type Stages struct {
	CaptureLeft  CaptureFunc
	CaptureRight CaptureFunc
	Preprocess   PreprocessFunc
	Infer        InferFunc
	Report       ReportFunc
}

// StageTiming is the scheduling contract for one stage.
type StageTiming struct {
	Period   time.Duration
	Deadline time.Duration // zero defaults to Period
	Priority int
	CPU      int
}

// Config carries per-stage timing and the overall cycle budget.
type Config struct {
	LeftCapture  StageTiming
	RightCapture StageTiming
	Preprocess   StageTiming
	Inference    StageTiming
	Report       StageTiming
	Watchdog     StageTiming

	// CycleBudget bounds the end-to-end lap across the whole chain.
	// Zero defaults to the sum of the stage periods.
	CycleBudget time.Duration
}

// DefaultConfig mirrors the reference deployment: a 660ms cycle split over
// capture (110ms, prio 99, cores 2/3), preprocess (110ms, prio 98, core 1),
// inference (220ms, prio 97, core 3) and the lower-priority monitor and
// report stages.
func DefaultConfig() Config {
	return Config{
		LeftCapture:  StageTiming{Period: 110 * time.Millisecond, Priority: 99, CPU: 2},
		RightCapture: StageTiming{Period: 110 * time.Millisecond, Priority: 99, CPU: 3},
		Preprocess:   StageTiming{Period: 110 * time.Millisecond, Priority: 98, CPU: 1},
		Inference:    StageTiming{Period: 220 * time.Millisecond, Priority: 97, CPU: 3},
		Watchdog:     StageTiming{Period: 110 * time.Millisecond, Priority: 96, CPU: 0},
		Report:       StageTiming{Period: 110 * time.Millisecond, Priority: 95, CPU: 0},
		CycleBudget:  660 * time.Millisecond,
	}
}

// Stage task names as they appear in statistics.
const (
	TaskLeftCamera  = "left-camera"
	TaskRightCamera = "right-camera"
	TaskPreprocess  = "preprocess"
	TaskInference   = "inference"
	TaskWatchdog    = "watchdog"
	TaskReport      = "report"

	// TaskCycle is the reserved name cycle laps are recorded under.
	TaskCycle = "cycle"
)
