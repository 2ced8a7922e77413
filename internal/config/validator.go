package config

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Validate checks structural correctness of the configuration. A violation
// here is a configuration error: fatal to startup, nothing gets scheduled.
func Validate(cfg *Config) error {
	stages := []struct {
		name  string
		stage StageConfig
	}{
		{"left_capture", cfg.Stages.LeftCapture},
		{"right_capture", cfg.Stages.RightCapture},
		{"preprocess", cfg.Stages.Preprocess},
		{"inference", cfg.Stages.Inference},
		{"watchdog", cfg.Stages.Watchdog},
		{"report", cfg.Stages.Report},
	}

	cores := availableCores()

	for _, s := range stages {
		if s.stage.PeriodMS <= 0 {
			return fmt.Errorf("stage %s: period_ms must be positive, got %d", s.name, s.stage.PeriodMS)
		}
		if s.stage.DeadlineMS < 0 {
			return fmt.Errorf("stage %s: deadline_ms must not be negative, got %d", s.name, s.stage.DeadlineMS)
		}
		if s.stage.DeadlineMS > s.stage.PeriodMS {
			return fmt.Errorf("stage %s: deadline_ms %d exceeds period_ms %d", s.name, s.stage.DeadlineMS, s.stage.PeriodMS)
		}
		if s.stage.Priority < 1 || s.stage.Priority > 99 {
			return fmt.Errorf("stage %s: priority must be in 1..99, got %d", s.name, s.stage.Priority)
		}
		if s.stage.CPU < 0 || (cores > 0 && s.stage.CPU >= cores) {
			return fmt.Errorf("stage %s: cpu %d outside available cores 0..%d", s.name, s.stage.CPU, cores-1)
		}
	}

	if cfg.CycleBudgetMS < 0 {
		return fmt.Errorf("cycle_budget_ms must not be negative, got %d", cfg.CycleBudgetMS)
	}

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt enabled but no broker configured")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics enabled but no listen_addr configured")
	}

	return nil
}

// availableCores returns the logical core count, or 0 when topology
// introspection fails (affinity bounds are then not checked).
func availableCores() int {
	count, err := cpu.Counts(true)
	if err != nil {
		return 0
	}
	return count
}
