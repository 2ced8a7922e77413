// Package promexport exposes monitor statistics as Prometheus metrics.
package promexport

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/visiona/rtvision/perfmon"
)

// Collector adapts a perfmon.Monitor to the prometheus.Collector contract.
// Every scrape takes a fresh snapshot; nothing is cached between scrapes.
type Collector struct {
	monitor     *perfmon.Monitor
	bucketWidth time.Duration

	executions *prometheus.Desc
	missed     *prometheus.Desc
	average    *prometheus.Desc
	max        *prometheus.Desc
	jitter     *prometheus.Desc
	meetRate   *prometheus.Desc
	execHist   *prometheus.Desc
}

// NewCollector creates a collector over monitor. bucketWidth must match the
// monitor's histogram granularity.
func NewCollector(monitor *perfmon.Monitor, bucketWidth time.Duration) *Collector {
	if bucketWidth <= 0 {
		bucketWidth = perfmon.DefaultBucketWidth
	}
	labels := []string{"task"}
	return &Collector{
		monitor:     monitor,
		bucketWidth: bucketWidth,
		executions: prometheus.NewDesc("rtvision_task_executions_total",
			"Completed activations per task.", labels, nil),
		missed: prometheus.NewDesc("rtvision_task_missed_deadlines_total",
			"Activations that overran their deadline.", labels, nil),
		average: prometheus.NewDesc("rtvision_task_execution_time_avg_seconds",
			"Mean execution time per activation.", labels, nil),
		max: prometheus.NewDesc("rtvision_task_execution_time_max_seconds",
			"Worst observed execution time.", labels, nil),
		jitter: prometheus.NewDesc("rtvision_task_execution_jitter_seconds",
			"Standard deviation of execution time.", labels, nil),
		meetRate: prometheus.NewDesc("rtvision_task_deadline_meet_ratio",
			"Fraction of activations that met their deadline.", labels, nil),
		execHist: prometheus.NewDesc("rtvision_task_execution_time_seconds",
			"Execution time distribution.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.executions
	ch <- c.missed
	ch <- c.average
	ch <- c.max
	ch <- c.jitter
	ch <- c.meetRate
	ch <- c.execHist
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, ts := range c.monitor.AllTaskStats() {
		ch <- prometheus.MustNewConstMetric(c.executions,
			prometheus.CounterValue, float64(ts.TotalExecutions), ts.Name)
		ch <- prometheus.MustNewConstMetric(c.missed,
			prometheus.CounterValue, float64(ts.MissedDeadlines), ts.Name)
		ch <- prometheus.MustNewConstMetric(c.average,
			prometheus.GaugeValue, ts.AverageExecutionTime/1e6, ts.Name)
		ch <- prometheus.MustNewConstMetric(c.max,
			prometheus.GaugeValue, ts.MaxExecutionTime/1e6, ts.Name)
		ch <- prometheus.MustNewConstMetric(c.jitter,
			prometheus.GaugeValue, ts.Jitter/1e6, ts.Name)
		ch <- prometheus.MustNewConstMetric(c.meetRate,
			prometheus.GaugeValue, ts.DeadlineMeetRate, ts.Name)

		count, sum, buckets := c.cumulative(ts)
		ch <- prometheus.MustNewConstHistogram(c.execHist, count, sum, buckets, ts.Name)
	}
}

// cumulative converts the monitor's per-bucket counts into the cumulative
// form const histograms require. Upper bounds are the inclusive end of each
// bucket, in seconds.
func (c *Collector) cumulative(ts perfmon.TaskStats) (uint64, float64, map[float64]uint64) {
	starts := make([]time.Duration, 0, len(ts.Histogram))
	for start := range ts.Histogram {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	buckets := make(map[float64]uint64, len(starts))
	var running uint64
	for _, start := range starts {
		running += ts.Histogram[start]
		upper := (start + c.bucketWidth).Seconds()
		buckets[upper] = running
	}

	sum := ts.AverageExecutionTime / 1e6 * float64(ts.TotalExecutions)
	return ts.TotalExecutions, sum, buckets
}
