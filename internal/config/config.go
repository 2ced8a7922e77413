// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/visiona/rtvision/pipeline"
)

// Config represents the complete daemon configuration.
type Config struct {
	InstanceID       string           `yaml:"instance_id"`
	ShutdownTimeoutS int              `yaml:"shutdown_timeout_s"` // graceful shutdown timeout in seconds (default: 5)
	Stages           StagesConfig     `yaml:"stages"`
	CycleBudgetMS    int              `yaml:"cycle_budget_ms"` // 0 = sum of stage periods
	MQTT             MQTTConfig       `yaml:"mqtt"`
	Metrics          MetricsConfig    `yaml:"metrics"`
	Simulation       SimulationConfig `yaml:"simulation"`
}

// StagesConfig carries the per-stage scheduling contracts.
type StagesConfig struct {
	LeftCapture  StageConfig `yaml:"left_capture"`
	RightCapture StageConfig `yaml:"right_capture"`
	Preprocess   StageConfig `yaml:"preprocess"`
	Inference    StageConfig `yaml:"inference"`
	Watchdog     StageConfig `yaml:"watchdog"`
	Report       StageConfig `yaml:"report"`
}

// StageConfig defines one stage's timing and placement.
type StageConfig struct {
	PeriodMS   int `yaml:"period_ms"`
	DeadlineMS int `yaml:"deadline_ms"` // 0 = period
	Priority   int `yaml:"priority"`    // 1..99, higher wins
	CPU        int `yaml:"cpu"`
}

// MQTTConfig contains telemetry broker settings.
type MQTTConfig struct {
	Enabled   bool       `yaml:"enabled"`
	Broker    string     `yaml:"broker"`
	Topics    MQTTTopics `yaml:"topics"`
	QoS       byte       `yaml:"qos"`
	IntervalS int        `yaml:"interval_s"` // stats publish interval (default: 5)
}

// MQTTTopics contains topic templates.
type MQTTTopics struct {
	Stats  string `yaml:"stats"`
	Health string `yaml:"health"`
}

// MetricsConfig contains the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// SimulationConfig drives the built-in simulated stage bodies. Real capture
// and inference are external collaborators; the daemon ships simulated ones
// with configurable latencies.
type SimulationConfig struct {
	CaptureLatencyMS    int `yaml:"capture_latency_ms"`
	PreprocessLatencyMS int `yaml:"preprocess_latency_ms"`
	InferenceLatencyMS  int `yaml:"inference_latency_ms"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the reference configuration: the 660ms stereo detection
// cycle with simulated stage bodies.
func Default() *Config {
	cfg := &Config{
		Stages: StagesConfig{
			LeftCapture:  StageConfig{PeriodMS: 110, Priority: 99, CPU: 2},
			RightCapture: StageConfig{PeriodMS: 110, Priority: 99, CPU: 3},
			Preprocess:   StageConfig{PeriodMS: 110, Priority: 98, CPU: 1},
			Inference:    StageConfig{PeriodMS: 220, Priority: 97, CPU: 3},
			Watchdog:     StageConfig{PeriodMS: 110, Priority: 96, CPU: 0},
			Report:       StageConfig{PeriodMS: 110, Priority: 95, CPU: 0},
		},
		CycleBudgetMS: 660,
		Simulation: SimulationConfig{
			CaptureLatencyMS:    5,
			PreprocessLatencyMS: 10,
			InferenceLatencyMS:  50,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.InstanceID == "" {
		c.InstanceID = "rtvision-" + uuid.NewString()[:8]
	}
	if c.ShutdownTimeoutS <= 0 {
		c.ShutdownTimeoutS = 5
	}
	if c.MQTT.IntervalS <= 0 {
		c.MQTT.IntervalS = 5
	}
	if c.MQTT.Topics.Stats == "" {
		c.MQTT.Topics.Stats = "rtvision/stats"
	}
	if c.MQTT.Topics.Health == "" {
		c.MQTT.Topics.Health = "rtvision/health"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9464"
	}
}

// PipelineConfig converts the stage table into pipeline timing.
func (c *Config) PipelineConfig() pipeline.Config {
	stage := func(s StageConfig) pipeline.StageTiming {
		return pipeline.StageTiming{
			Period:   time.Duration(s.PeriodMS) * time.Millisecond,
			Deadline: time.Duration(s.DeadlineMS) * time.Millisecond,
			Priority: s.Priority,
			CPU:      s.CPU,
		}
	}
	return pipeline.Config{
		LeftCapture:  stage(c.Stages.LeftCapture),
		RightCapture: stage(c.Stages.RightCapture),
		Preprocess:   stage(c.Stages.Preprocess),
		Inference:    stage(c.Stages.Inference),
		Watchdog:     stage(c.Stages.Watchdog),
		Report:       stage(c.Stages.Report),
		CycleBudget:  time.Duration(c.CycleBudgetMS) * time.Millisecond,
	}
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}
