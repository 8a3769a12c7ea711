package model

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a mining task.
type TaskStatus int

const (
	TaskStatusPending TaskStatus = 0 // Waiting to be picked up
	TaskStatusRunning TaskStatus = 1 // A miner is consuming the stream
	TaskStatusDone    TaskStatus = 2 // Stream finished, final model persisted
	TaskStatusFailed  TaskStatus = 3 // Aborted with an error
)

// String returns the string representation of TaskStatus.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusRunning:
		return "running"
	case TaskStatusDone:
		return "done"
	case TaskStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task describes one mining job: a named event stream to discover a model
// from, plus the discovery parameters to use for it.
type Task struct {
	// TaskUUID uniquely identifies the job across sources.
	TaskUUID string `json:"task_uuid"`

	// Stream is the logical name of the event stream (one miner per stream).
	Stream string `json:"stream"`

	// LogPath points at an XES log for file-driven jobs; empty for push streams.
	LogPath string `json:"log_path,omitempty"`

	// Params overrides the configured discovery parameters when non-nil.
	Params *MinerParams `json:"params,omitempty"`

	// Priority marks jobs that should be scheduled ahead of the backlog.
	Priority int `json:"priority"`

	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`

	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// MinerParams holds the discovery parameters for one miner instance.
type MinerParams struct {
	// ErrorEpsilon is the lossy-counting error bound, in (0, 1].
	ErrorEpsilon float64 `json:"error_epsilon"`

	// DependThreshold is the minimum dependency score to admit an edge, in [0, 1].
	DependThreshold float64 `json:"depend_threshold"`

	// XorThreshold is the upper bound for the XOR mutual-frequency ratio, in [0, 1].
	XorThreshold float64 `json:"xor_threshold"`

	// RebuildEvery triggers a synthesis every N ingested events when > 0.
	RebuildEvery int `json:"rebuild_every,omitempty"`

	// WindowSize switches the miner to windowed mode when > 0.
	WindowSize int `json:"window_size,omitempty"`
}

// IsHighPriority reports whether the task should jump the queue.
func (t *Task) IsHighPriority() bool {
	return t.Priority > 0
}

// ToJSON serializes the task to JSON.
func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// TaskFromJSON deserializes a task from JSON.
func TaskFromJSON(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
