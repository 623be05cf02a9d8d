package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPickContext() *PickContext {
	return &PickContext{
		WaveID:   "WAVE-001",
		OrderID:  "ORDER-001",
		Strategy: PickStrategyDiscrete,
		Instructions: []PickInstruction{
			{SKU: "SKU-001", Quantity: 2, Location: NewLocation("A1", "03", "2", "01"), LPN: "LPN-001"},
		},
		TotalQuantity: 2,
	}
}

func newTestTask(t *testing.T) *WorkTask {
	t.Helper()
	task, err := NewWorkTask(NewTaskParams{
		Type:              TaskTypePick,
		Priority:          PriorityNormal,
		WarehouseID:       "WH-001",
		Zone:              "ZONE-A",
		Context:           validPickContext(),
		ReferenceID:       "ORDER-001",
		EstimatedDuration: 10 * time.Minute,
	})
	require.NoError(t, err)
	return task
}

// TestNewWorkTask tests task creation
func TestNewWorkTask(t *testing.T) {
	task := newTestTask(t)

	assert.True(t, strings.HasPrefix(task.TaskID, "TASK-"))
	assert.Len(t, task.TaskID, 13)
	assert.Equal(t, task.TaskID, strings.ToUpper(task.TaskID))
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, TaskTypePick, task.Type)
	assert.NotZero(t, task.CreatedAt)
	assert.Equal(t, "WAVE-001", task.Metadata["waveId"])

	events := task.DomainEvents
	require.Len(t, events, 1)
	created, ok := events[0].(*TaskCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, task.TaskID, created.TaskID)
	assert.Equal(t, "wms.task.created", created.EventType())
}

func TestNewWorkTaskValidation(t *testing.T) {
	tests := []struct {
		name   string
		params NewTaskParams
	}{
		{
			name: "missing context",
			params: NewTaskParams{
				Type:        TaskTypePick,
				Priority:    PriorityNormal,
				WarehouseID: "WH-001",
			},
		},
		{
			name: "context type mismatch",
			params: NewTaskParams{
				Type:        TaskTypePack,
				Priority:    PriorityNormal,
				WarehouseID: "WH-001",
				Context:     validPickContext(),
			},
		},
		{
			name: "invalid context",
			params: NewTaskParams{
				Type:        TaskTypePick,
				Priority:    PriorityNormal,
				WarehouseID: "WH-001",
				Context:     &PickContext{OrderID: "ORDER-001"},
			},
		},
		{
			name: "missing warehouse",
			params: NewTaskParams{
				Type:     TaskTypePick,
				Priority: PriorityNormal,
				Context:  validPickContext(),
			},
		},
		{
			name: "unknown task type",
			params: NewTaskParams{
				Type:        TaskType("SORT"),
				Priority:    PriorityNormal,
				WarehouseID: "WH-001",
				Context:     validPickContext(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewWorkTask(tt.params)
			assert.Error(t, err)
			assert.Nil(t, task)
		})
	}
}

// TestStatusTransitions checks the full transition table
func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{TaskStatusPending, TaskStatusQueued, true},
		{TaskStatusPending, TaskStatusCancelled, true},
		{TaskStatusPending, TaskStatusAssigned, false},
		{TaskStatusQueued, TaskStatusAssigned, true},
		{TaskStatusQueued, TaskStatusCancelled, true},
		{TaskStatusQueued, TaskStatusInProgress, false},
		{TaskStatusAssigned, TaskStatusAccepted, true},
		{TaskStatusAssigned, TaskStatusQueued, true},
		{TaskStatusAssigned, TaskStatusCancelled, true},
		{TaskStatusAssigned, TaskStatusCompleted, false},
		{TaskStatusAccepted, TaskStatusInProgress, true},
		{TaskStatusAccepted, TaskStatusCancelled, true},
		{TaskStatusAccepted, TaskStatusQueued, false},
		{TaskStatusInProgress, TaskStatusCompleted, true},
		{TaskStatusInProgress, TaskStatusFailed, true},
		{TaskStatusInProgress, TaskStatusCancelled, true},
		{TaskStatusInProgress, TaskStatusQueued, false},
		{TaskStatusCompleted, TaskStatusQueued, false},
		{TaskStatusFailed, TaskStatusQueued, false},
		{TaskStatusCancelled, TaskStatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTaskLifecycle(t *testing.T) {
	task := newTestTask(t)
	task.PullDomainEvents()

	require.NoError(t, task.Queue())
	assert.Equal(t, TaskStatusQueued, task.Status)
	require.NotNil(t, task.QueuedAt)

	require.NoError(t, task.Assign("WORKER-001"))
	assert.Equal(t, TaskStatusAssigned, task.Status)
	assert.Equal(t, "WORKER-001", task.AssignedTo)
	require.NotNil(t, task.AssignedAt)

	events := task.PullDomainEvents()
	require.Len(t, events, 1)
	assigned, ok := events[0].(*TaskAssignedEvent)
	require.True(t, ok)
	assert.Equal(t, "WORKER-001", assigned.WorkerID)

	require.NoError(t, task.Accept())
	require.NotNil(t, task.AcceptedAt)

	require.NoError(t, task.Start())
	require.NotNil(t, task.StartedAt)

	require.NoError(t, task.Complete())
	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.GreaterOrEqual(t, task.ActualDuration, time.Duration(0))

	events = task.PullDomainEvents()
	require.Len(t, events, 1)
	completed, ok := events[0].(*TaskCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "WH-001", completed.WarehouseID)
	assert.Equal(t, "ORDER-001", completed.ReferenceID)
	assert.GreaterOrEqual(t, completed.ActualDurationMs, int64(0))
	assert.False(t, completed.CompletedOnTime, "a task with no deadline is never on time")
}

func TestCompleteBeforeDeadlineOnTime(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	task, err := NewWorkTask(NewTaskParams{
		Type:              TaskTypePick,
		Priority:          PriorityNormal,
		WarehouseID:       "WH-001",
		Zone:              "ZONE-A",
		Context:           validPickContext(),
		EstimatedDuration: 10 * time.Minute,
		Deadline:          &future,
	})
	require.NoError(t, err)

	require.NoError(t, task.Queue())
	require.NoError(t, task.Assign("WORKER-001"))
	require.NoError(t, task.Accept())
	require.NoError(t, task.Start())
	task.PullDomainEvents()
	require.NoError(t, task.Complete())

	events := task.PullDomainEvents()
	require.Len(t, events, 1)
	completed := events[0].(*TaskCompletedEvent)
	assert.True(t, completed.CompletedOnTime)
}

func TestLifecycleOpsRequireAssignedWorker(t *testing.T) {
	ops := []struct {
		name string
		op   func(*WorkTask) error
	}{
		{"accept", (*WorkTask).Accept},
		{"start", (*WorkTask).Start},
		{"complete", (*WorkTask).Complete},
	}

	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			task := newTestTask(t)
			task.Status = TaskStatusAssigned
			task.AssignedTo = ""

			err := tt.op(task)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestTaskReject(t *testing.T) {
	task := newTestTask(t)
	require.NoError(t, task.Queue())
	require.NoError(t, task.Assign("WORKER-001"))
	task.PullDomainEvents()

	require.NoError(t, task.Reject("wrong zone"))

	assert.Equal(t, TaskStatusQueued, task.Status)
	assert.Empty(t, task.AssignedTo)
	assert.Nil(t, task.AssignedAt)
	assert.Empty(t, task.PullDomainEvents(), "reject must not emit an event")

	// Task can be assigned again
	require.NoError(t, task.Assign("WORKER-002"))
	assert.Equal(t, "WORKER-002", task.AssignedTo)
}

func TestTaskRejectRequiresAssigned(t *testing.T) {
	task := newTestTask(t)
	err := task.Reject("not assigned yet")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTaskFail(t *testing.T) {
	task := newTestTask(t)
	require.NoError(t, task.Queue())
	require.NoError(t, task.Assign("WORKER-001"))
	require.NoError(t, task.Accept())
	require.NoError(t, task.Start())
	task.PullDomainEvents()

	require.NoError(t, task.Fail("damaged tote"))
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, "damaged tote", task.FailureReason)
	require.NotNil(t, task.CompletedAt)
	assert.GreaterOrEqual(t, task.ActualDuration, time.Duration(0))

	events := task.PullDomainEvents()
	require.Len(t, events, 1)
	failed, ok := events[0].(*TaskFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "damaged tote", failed.Reason)
	assert.Equal(t, "WH-001", failed.WarehouseID)
	assert.Equal(t, "ORDER-001", failed.ReferenceID)
}

func TestTaskCancel(t *testing.T) {
	task := newTestTask(t)
	require.NoError(t, task.Cancel("wave cancelled"))
	assert.Equal(t, TaskStatusCancelled, task.Status)
	assert.Equal(t, "wave cancelled", task.CancellationReason)

	// Cancelling a terminal task is rejected
	err := task.Cancel("again")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCompleteAfterDeadlineNotOnTime(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	task, err := NewWorkTask(NewTaskParams{
		Type:              TaskTypePick,
		Priority:          PriorityNormal,
		WarehouseID:       "WH-001",
		Zone:              "ZONE-A",
		Context:           validPickContext(),
		EstimatedDuration: 10 * time.Minute,
		Deadline:          &past,
	})
	require.NoError(t, err)
	task.PullDomainEvents()

	require.NoError(t, task.Queue())
	require.NoError(t, task.Assign("WORKER-001"))
	require.NoError(t, task.Accept())
	require.NoError(t, task.Start())
	task.PullDomainEvents()
	require.NoError(t, task.Complete())

	events := task.PullDomainEvents()
	require.Len(t, events, 1)
	completed := events[0].(*TaskCompletedEvent)
	assert.False(t, completed.CompletedOnTime)
}

func TestOverdueSkipsTerminalTasks(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	task := newTestTask(t)
	task.Deadline = &past
	assert.True(t, task.IsOverdue(now))

	require.NoError(t, task.Cancel("wave cancelled"))
	assert.False(t, task.IsOverdue(now), "a finished task cannot be overdue")
}

func TestQueueScoreOrdering(t *testing.T) {
	now := time.Now().UTC()

	// A CRITICAL task created four hours ago must sort ahead of a fresh NORMAL task
	critical := newTestTask(t)
	critical.Priority = PriorityCritical
	critical.CreatedAt = now.Add(-4 * time.Hour)

	normal := newTestTask(t)
	normal.Priority = PriorityNormal
	normal.CreatedAt = now

	assert.Less(t, critical.QueueScore(now), normal.QueueScore(now))
}

func TestQueueScoreOverdueJumpsLine(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	overdue := newTestTask(t)
	overdue.Priority = PriorityLow
	overdue.CreatedAt = now
	overdue.Deadline = &past

	fresh := newTestTask(t)
	fresh.Priority = PriorityCritical
	fresh.CreatedAt = now

	assert.Less(t, overdue.QueueScore(now), fresh.QueueScore(now))
}

func TestGetPerformanceRatio(t *testing.T) {
	task := newTestTask(t)
	assert.InDelta(t, 1.0, task.GetPerformanceRatio(), 1e-9, "unknown durations default to neutral")

	task.ActualDuration = 5 * time.Minute
	assert.InDelta(t, 0.5, task.GetPerformanceRatio(), 1e-9)

	task.ActualDuration = 20 * time.Minute
	assert.InDelta(t, 2.0, task.GetPerformanceRatio(), 1e-9)
}

func TestPriorityFromString(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFromString("CRITICAL"))
	assert.Equal(t, PriorityLow, PriorityFromString("LOW"))
	assert.Equal(t, PriorityNormal, PriorityFromString("WHATEVER"))
	assert.Equal(t, PriorityNormal, PriorityFromString(""))
}

func TestPriorityValues(t *testing.T) {
	assert.Equal(t, 1, PriorityCritical.Value())
	assert.Equal(t, 1, PriorityUrgent.Value())
	assert.Equal(t, 2, PriorityHigh.Value())
	assert.Equal(t, 3, PriorityNormal.Value())
	assert.Equal(t, 4, PriorityLow.Value())

	assert.True(t, PriorityCritical.IsExpedited())
	assert.True(t, PriorityHigh.IsExpedited())
	assert.False(t, PriorityNormal.IsExpedited())
	assert.False(t, PriorityLow.IsExpedited())
}

func TestTaskTypeProperties(t *testing.T) {
	assert.True(t, TaskTypePick.RequiresLocation())
	assert.False(t, TaskTypePack.RequiresLocation())
	assert.True(t, TaskTypeShip.IsOrderRelated())
	assert.False(t, TaskTypeCount.IsOrderRelated())
	assert.InDelta(t, 1.5, TaskTypeReplenish.ComplexityMultiplier(), 1e-9)
	assert.InDelta(t, 0.5, TaskTypeMove.ComplexityMultiplier(), 1e-9)
}
