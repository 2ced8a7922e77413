package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
instance_id: bench-01
shutdown_timeout_s: 3
cycle_budget_ms: 200
stages:
  left_capture:  {period_ms: 20, deadline_ms: 18, priority: 99, cpu: 0}
  right_capture: {period_ms: 20, deadline_ms: 18, priority: 99, cpu: 0}
  preprocess:    {period_ms: 20, deadline_ms: 18, priority: 98, cpu: 0}
  inference:     {period_ms: 40, deadline_ms: 36, priority: 97, cpu: 0}
  watchdog:      {period_ms: 20, priority: 96, cpu: 0}
  report:        {period_ms: 20, priority: 95, cpu: 0}
mqtt:
  enabled: true
  broker: localhost:1883
  qos: 1
  interval_s: 2
metrics:
  enabled: true
  listen_addr: ":9464"
simulation:
  capture_latency_ms: 1
  preprocess_latency_ms: 2
  inference_latency_ms: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}
	return path
}

// TestLoad verifies parsing, defaults and the pipeline conversion.
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InstanceID != "bench-01" {
		t.Errorf("InstanceID = %q", cfg.InstanceID)
	}
	if cfg.ShutdownTimeout() != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout())
	}
	if cfg.MQTT.Topics.Stats != "rtvision/stats" {
		t.Errorf("Stats topic default not applied: %q", cfg.MQTT.Topics.Stats)
	}

	pc := cfg.PipelineConfig()
	if pc.Inference.Period != 40*time.Millisecond {
		t.Errorf("Inference period = %v", pc.Inference.Period)
	}
	if pc.Inference.Deadline != 36*time.Millisecond {
		t.Errorf("Inference deadline = %v", pc.Inference.Deadline)
	}
	if pc.CycleBudget != 200*time.Millisecond {
		t.Errorf("CycleBudget = %v", pc.CycleBudget)
	}
}

// TestLoadMissingFile verifies the read error surfaces.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

// TestValidate covers the structural violations that must halt startup.
func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		// Pin everything to core 0 so the check passes on any machine.
		for _, s := range []*StageConfig{
			&cfg.Stages.LeftCapture, &cfg.Stages.RightCapture,
			&cfg.Stages.Preprocess, &cfg.Stages.Inference,
			&cfg.Stages.Watchdog, &cfg.Stages.Report,
		} {
			s.CPU = 0
		}
		return cfg
	}

	if err := Validate(base()); err != nil {
		t.Fatalf("Reference config invalid: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"zero period", func(c *Config) { c.Stages.Preprocess.PeriodMS = 0 }, "period_ms"},
		{"deadline over period", func(c *Config) { c.Stages.Inference.DeadlineMS = 500 }, "exceeds period_ms"},
		{"priority out of range", func(c *Config) { c.Stages.Report.Priority = 100 }, "priority"},
		{"negative cpu", func(c *Config) { c.Stages.Watchdog.CPU = -1 }, "cpu"},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "" }, "broker"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("Error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}
