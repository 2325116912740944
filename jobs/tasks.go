package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTermSweep expires assignments whose terms have ended.
	TaskTermSweep = "lifecycle:term_sweep"
	// TaskElectionScan surfaces orgs with elections inside the horizon.
	TaskElectionScan = "lifecycle:election_scan"
)

// ElectionScanPayload parameterizes an election scan.
type ElectionScanPayload struct {
	HorizonDays int `json:"horizon_days"`
}

// NewTermSweepTask constructs the sweep task.
func NewTermSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTermSweep, nil)
}

// NewElectionScanTask constructs an election scan task.
func NewElectionScanTask(payload ElectionScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskElectionScan, data), nil
}
