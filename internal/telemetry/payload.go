package telemetry

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/visiona/rtvision/perfmon"
)

// StatsPayload is the wire form of one statistics snapshot. Encoded with
// msgpack: snapshots go out every few seconds and stay compact on
// constrained links.
type StatsPayload struct {
	InstanceID string             `msgpack:"instance_id"`
	Timestamp  int64              `msgpack:"ts"` // unix milliseconds
	Tasks      []TaskStatsPayload `msgpack:"tasks"`
}

// TaskStatsPayload mirrors perfmon.TaskStats without the histogram (the
// histogram goes to the metrics endpoint, not the broker).
type TaskStatsPayload struct {
	Name             string  `msgpack:"name"`
	TotalExecutions  uint64  `msgpack:"total"`
	MissedDeadlines  uint64  `msgpack:"missed"`
	AverageUS        float64 `msgpack:"avg_us"`
	MaxUS            float64 `msgpack:"max_us"`
	JitterUS         float64 `msgpack:"jitter_us"`
	DeadlineMeetRate float64 `msgpack:"meet_rate"`
}

// EncodeStats builds and marshals a snapshot payload.
func EncodeStats(instanceID string, stats []perfmon.TaskStats) ([]byte, error) {
	payload := StatsPayload{
		InstanceID: instanceID,
		Timestamp:  time.Now().UnixMilli(),
		Tasks:      make([]TaskStatsPayload, 0, len(stats)),
	}
	for _, ts := range stats {
		payload.Tasks = append(payload.Tasks, TaskStatsPayload{
			Name:             ts.Name,
			TotalExecutions:  ts.TotalExecutions,
			MissedDeadlines:  ts.MissedDeadlines,
			AverageUS:        ts.AverageExecutionTime,
			MaxUS:            ts.MaxExecutionTime,
			JitterUS:         ts.Jitter,
			DeadlineMeetRate: ts.DeadlineMeetRate,
		})
	}
	return msgpack.Marshal(payload)
}
