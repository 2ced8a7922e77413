// rtvisiond runs the stereo detection pipeline under the real-time
// scheduler, with MQTT stats telemetry and a Prometheus endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visiona/rtvision/internal/config"
	"github.com/visiona/rtvision/internal/promexport"
	"github.com/visiona/rtvision/internal/telemetry"
	"github.com/visiona/rtvision/perfmon"
	"github.com/visiona/rtvision/pipeline"
	"github.com/visiona/rtvision/rtsched"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fmt.Println("╔════════════════════════════════════╗")
	fmt.Println("║  rtvisiond - stereo detection loop ║")
	fmt.Println("╚════════════════════════════════════╝")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		"instance_id", cfg.InstanceID,
		"cycle_budget_ms", cfg.CycleBudgetMS,
		"mqtt", cfg.MQTT.Enabled,
		"metrics", cfg.Metrics.Enabled)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	monitor := perfmon.New()

	sim := newSimulator(cfg.Simulation, logger)
	pipe := pipeline.New(cfg.PipelineConfig(), sim.Stages(), monitor, logger)
	defer pipe.Close()

	sched, err := rtsched.New(pipe.Tasks(), rtsched.Options{
		Monitor: monitor,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("scheduler construction failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(promexport.NewCollector(monitor, perfmon.DefaultBucketWidth))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}

		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	var emitter *telemetry.Emitter
	if cfg.MQTT.Enabled {
		emitter = telemetry.New(telemetry.Config{
			Broker:      cfg.MQTT.Broker,
			InstanceID:  cfg.InstanceID,
			StatsTopic:  cfg.MQTT.Topics.Stats,
			HealthTopic: cfg.MQTT.Topics.Health,
			QoS:         cfg.MQTT.QoS,
			Interval:    time.Duration(cfg.MQTT.IntervalS) * time.Second,
		}, monitor, logger)

		if err := emitter.Connect(ctx); err != nil {
			// Telemetry is best-effort: the client keeps retrying in the
			// background while the pipeline runs.
			logger.Warn("mqtt connect failed, continuing without telemetry", "error", err)
		}
		go emitter.Run(ctx)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}
	logger.Info("pipeline running", "instance_id", cfg.InstanceID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	return shutdown(cfg, logger, sched, pipe, emitter, metricsSrv)
}

// shutdown stops the scheduler within the configured budget, then tears the
// reporting surfaces down.
func shutdown(cfg *config.Config, logger *slog.Logger, sched *rtsched.Scheduler,
	pipe *pipeline.Pipeline, emitter *telemetry.Emitter, metricsSrv *http.Server) error {

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout()):
		logger.Error("scheduler did not stop within budget", "timeout", cfg.ShutdownTimeout())
	}

	pipe.Close()

	for name, ts := range summarize(sched.TaskStats()) {
		logger.Info("final stats", "task", name,
			"executions", ts.TotalExecutions,
			"missed", ts.MissedDeadlines,
			"avg_us", fmt.Sprintf("%.1f", ts.AverageExecutionTime),
			"jitter_us", fmt.Sprintf("%.1f", ts.Jitter))
	}

	if emitter != nil {
		if err := emitter.PublishStats(); err != nil {
			logger.Debug("final stats publish skipped", "error", err)
		}
		emitter.Disconnect()
	}

	if metricsSrv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func summarize(stats []perfmon.TaskStats) map[string]perfmon.TaskStats {
	out := make(map[string]perfmon.TaskStats, len(stats))
	for _, ts := range stats {
		out[ts.Name] = ts
	}
	return out
}
