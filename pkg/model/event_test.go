package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_Events(t *testing.T) {
	trace := Trace{CaseID: "c1", Activities: []string{"A", "B"}}
	events := trace.Events()

	require.Len(t, events, 2)
	assert.Equal(t, Event{CaseID: "c1", Activity: "A"}, events[0])
	assert.Equal(t, Event{CaseID: "c1", Activity: "B"}, events[1])
}

func TestExpandLog(t *testing.T) {
	events := ExpandLog([]LogEntry{
		{Trace: "AB", Frequency: 2},
		{Trace: "C", Frequency: 1},
	})

	require.Len(t, events, 5)
	// Every repetition gets a fresh synthetic case.
	assert.Equal(t, "case-1", events[0].CaseID)
	assert.Equal(t, "A", events[0].Activity)
	assert.Equal(t, "case-1", events[1].CaseID)
	assert.Equal(t, "case-2", events[2].CaseID)
	assert.Equal(t, "case-3", events[4].CaseID)
	assert.Equal(t, "C", events[4].Activity)
}

func TestExpandLog_CustomPrefix(t *testing.T) {
	events := ExpandLog([]LogEntry{{Trace: "A", Frequency: 1, CaseIDPrefix: "order"}})
	require.Len(t, events, 1)
	assert.Equal(t, "order-1", events[0].CaseID)
}

func TestTask_JSONRoundTrip(t *testing.T) {
	task := &Task{
		TaskUUID: "uuid-1",
		Stream:   "orders",
		Params: &MinerParams{
			ErrorEpsilon:    0.001,
			DependThreshold: 0.9,
			XorThreshold:    0.8,
		},
		Priority: 1,
		Status:   TaskStatusRunning,
	}

	data, err := task.ToJSON()
	require.NoError(t, err)

	parsed, err := TaskFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, task.TaskUUID, parsed.TaskUUID)
	assert.Equal(t, task.Stream, parsed.Stream)
	require.NotNil(t, parsed.Params)
	assert.Equal(t, 0.9, parsed.Params.DependThreshold)
	assert.True(t, parsed.IsHighPriority())
}

func TestTaskStatus_String(t *testing.T) {
	assert.Equal(t, "pending", TaskStatusPending.String())
	assert.Equal(t, "running", TaskStatusRunning.String())
	assert.Equal(t, "done", TaskStatusDone.String())
	assert.Equal(t, "failed", TaskStatusFailed.String())
	assert.Equal(t, "unknown", TaskStatus(9).String())
}
