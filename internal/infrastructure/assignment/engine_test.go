package assignment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/logging"
)

type fakeQueue struct {
	entries map[string][]string
	err     error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{entries: make(map[string][]string)}
}

func (q *fakeQueue) key(warehouseID, zone string, taskType domain.TaskType) string {
	return fmt.Sprintf("%s:%s:%s", warehouseID, zone, taskType)
}

func (q *fakeQueue) Enqueue(ctx context.Context, task *domain.WorkTask) error {
	if q.err != nil {
		return q.err
	}
	k := q.key(task.WarehouseID, task.Zone, task.Type)
	q.entries[k] = append(q.entries[k], task.TaskID)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	k := q.key(warehouseID, zone, taskType)
	if len(q.entries[k]) == 0 {
		return "", nil
	}
	taskID := q.entries[k][0]
	q.entries[k] = q.entries[k][1:]
	return taskID, nil
}

func (q *fakeQueue) Remove(ctx context.Context, task *domain.WorkTask) error { return nil }

func (q *fakeQueue) Peek(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (string, error) {
	k := q.key(warehouseID, zone, taskType)
	if len(q.entries[k]) == 0 {
		return "", nil
	}
	return q.entries[k][0], nil
}

func (q *fakeQueue) Depth(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (int64, error) {
	return int64(len(q.entries[q.key(warehouseID, zone, taskType)])), nil
}

type fakeRepo struct {
	domain.WorkTaskRepository
	tasks map[string]*domain.WorkTask
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: make(map[string]*domain.WorkTask)}
}

func (r *fakeRepo) FindByID(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	return r.tasks[taskID], nil
}

type fakeAssigner struct {
	tasks    map[string]*domain.WorkTask
	failFor  map[string]error
	attempts []string // "taskID->workerID"
}

func newFakeAssigner() *fakeAssigner {
	return &fakeAssigner{
		tasks:   make(map[string]*domain.WorkTask),
		failFor: make(map[string]error),
	}
}

func (a *fakeAssigner) AssignTask(ctx context.Context, taskID, workerID string) (*domain.WorkTask, error) {
	a.attempts = append(a.attempts, taskID+"->"+workerID)
	if err, ok := a.failFor[workerID]; ok {
		return nil, err
	}
	task, ok := a.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	task.AssignedTo = workerID
	task.Status = domain.TaskStatusAssigned
	return task, nil
}

func engineTask(t *testing.T, zone string) *domain.WorkTask {
	t.Helper()
	task, err := domain.NewWorkTask(domain.NewTaskParams{
		Type:        domain.TaskTypePick,
		Priority:    domain.PriorityNormal,
		WarehouseID: "WH-001",
		Zone:        zone,
		Context: &domain.PickContext{
			WaveID:   "WAVE-001",
			OrderID:  "ORDER-001",
			Strategy: domain.PickStrategyDiscrete,
			Instructions: []domain.PickInstruction{
				{SKU: "SKU-001", Quantity: 1, Location: domain.NewLocation("A1", "01", "1", "01"), LPN: "LPN-001"},
			},
			TotalQuantity: 1,
		},
		EstimatedDuration: 10 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, task.Queue())
	return task
}

func newTestEngine(q *fakeQueue, r *fakeRepo, a *fakeAssigner) *Engine {
	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "task-execution-service-test",
		Output:      io.Discard,
	})
	return NewEngine(q, r, a, logger, nil)
}

func pickWorker(id, zone string) Worker {
	return Worker{
		WorkerID:     id,
		WarehouseID:  "WH-001",
		CurrentZone:  zone,
		Capabilities: []domain.TaskType{domain.TaskTypePick},
	}
}

func TestGetNextTaskForWorkerEmptyQueues(t *testing.T) {
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), newFakeAssigner())

	task, err := engine.GetNextTaskForWorker(context.Background(), pickWorker("WORKER-001", "ZONE-A"))
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestGetNextTaskForWorkerAssigns(t *testing.T) {
	q := newFakeQueue()
	r := newFakeRepo()
	a := newFakeAssigner()
	engine := newTestEngine(q, r, a)
	ctx := context.Background()

	task := engineTask(t, "ZONE-A")
	require.NoError(t, q.Enqueue(ctx, task))
	a.tasks[task.TaskID] = task

	got, err := engine.GetNextTaskForWorker(ctx, pickWorker("WORKER-001", "ZONE-A"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.TaskID, got.TaskID)
	assert.Equal(t, "WORKER-001", got.AssignedTo)
}

func TestGetNextTaskForWorkerReenqueuesOnFailure(t *testing.T) {
	q := newFakeQueue()
	r := newFakeRepo()
	a := newFakeAssigner()
	engine := newTestEngine(q, r, a)
	ctx := context.Background()

	task := engineTask(t, "ZONE-A")
	require.NoError(t, q.Enqueue(ctx, task))
	r.tasks[task.TaskID] = task
	a.failFor["WORKER-001"] = domain.ErrVersionConflict

	got, err := engine.GetNextTaskForWorker(ctx, pickWorker("WORKER-001", "ZONE-A"))
	require.NoError(t, err)
	assert.Nil(t, got, "failed assignment yields an empty result, not an error")

	// The popped task went back on the queue exactly once
	depth, _ := q.Depth(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	assert.Equal(t, int64(1), depth)
	assert.Len(t, a.attempts, 1)
}

func TestGetNextTaskForWorkerQueueError(t *testing.T) {
	q := newFakeQueue()
	q.err = errors.New("connection refused")
	engine := newTestEngine(q, newFakeRepo(), newFakeAssigner())

	_, err := engine.GetNextTaskForWorker(context.Background(), pickWorker("WORKER-001", "ZONE-A"))
	assert.Error(t, err)
}

func TestAssignTaskToBestWorkerNoEligible(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	task := engineTask(t, "ZONE-A")
	workers := []Worker{
		{WorkerID: "W1", WarehouseID: "WH-001", CurrentZone: "ZONE-A", Capabilities: []domain.TaskType{domain.TaskTypePack}},
		{WorkerID: "W2", WarehouseID: "WH-OTHER", CurrentZone: "ZONE-A", Capabilities: []domain.TaskType{domain.TaskTypePick}},
	}

	_, err := engine.AssignTaskToBestWorker(context.Background(), task, workers)
	assert.ErrorIs(t, err, ErrNoEligibleWorkers)
	assert.Empty(t, a.attempts, "no assignment may be attempted without an eligible worker")
}

func TestAssignTaskToBestWorkerLoadedWorkerStillEligible(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	task := engineTask(t, "ZONE-A")
	a.tasks[task.TaskID] = task

	// Load only lowers the score; a heavily loaded worker still gets the task
	// when nobody else can take it
	busy := pickWorker("WORKER-BUSY", "ZONE-A")
	busy.ActiveTaskCount = 3

	got, err := engine.AssignTaskToBestWorker(context.Background(), task, []Worker{busy})
	require.NoError(t, err)
	assert.Equal(t, "WORKER-BUSY", got.AssignedTo)
}

func TestAssignTaskToBestWorkerPrefersBestFit(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	task := engineTask(t, "ZONE-A")
	a.tasks[task.TaskID] = task

	// Same zone with a specialization beats a busier worker in another zone
	best := pickWorker("WORKER-BEST", "ZONE-A")
	best.Specializations = []domain.TaskType{domain.TaskTypePick}

	other := pickWorker("WORKER-OTHER", "ZONE-B")
	other.ActiveTaskCount = 2

	got, err := engine.AssignTaskToBestWorker(context.Background(), task, []Worker{other, best})
	require.NoError(t, err)
	assert.Equal(t, "WORKER-BEST", got.AssignedTo)
}

func TestAssignTaskToBestWorkerFallsBackOnFailure(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	task := engineTask(t, "ZONE-A")
	a.tasks[task.TaskID] = task

	best := pickWorker("WORKER-BEST", "ZONE-A")
	best.Specializations = []domain.TaskType{domain.TaskTypePick}
	backup := pickWorker("WORKER-BACKUP", "ZONE-A")

	a.failFor["WORKER-BEST"] = domain.ErrVersionConflict

	got, err := engine.AssignTaskToBestWorker(context.Background(), task, []Worker{best, backup})
	require.NoError(t, err)
	assert.Equal(t, "WORKER-BACKUP", got.AssignedTo)
	assert.Len(t, a.attempts, 2)
}

func TestAssignTaskToBestWorkerExhausted(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	task := engineTask(t, "ZONE-A")
	a.failFor["W1"] = domain.ErrVersionConflict
	a.failFor["W2"] = domain.ErrVersionConflict

	_, err := engine.AssignTaskToBestWorker(context.Background(), task,
		[]Worker{pickWorker("W1", "ZONE-A"), pickWorker("W2", "ZONE-A")})
	assert.ErrorIs(t, err, ErrAllAssignmentsFailed)
}

func TestBatchAssignNoDoubleBooking(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)
	ctx := context.Background()

	first := engineTask(t, "ZONE-A")
	second := engineTask(t, "ZONE-A")
	a.tasks[first.TaskID] = first
	a.tasks[second.TaskID] = second

	workers := []Worker{pickWorker("W1", "ZONE-A"), pickWorker("W2", "ZONE-A")}

	results := engine.BatchAssign(ctx, []*domain.WorkTask{first, second}, workers)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.NotEqual(t, results[0].WorkerID, results[1].WorkerID, "a worker may not be booked twice in one batch")
}

func TestBatchAssignRunsOutOfWorkers(t *testing.T) {
	a := newFakeAssigner()
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), a)

	first := engineTask(t, "ZONE-A")
	second := engineTask(t, "ZONE-A")
	a.tasks[first.TaskID] = first
	a.tasks[second.TaskID] = second

	results := engine.BatchAssign(context.Background(),
		[]*domain.WorkTask{first, second},
		[]Worker{pickWorker("W1", "ZONE-A")})

	require.Len(t, results, 2)
	assert.Equal(t, "W1", results[0].WorkerID)
	assert.Equal(t, ErrNoEligibleWorkers.Error(), results[1].Error)
}

func TestGetTaskRecommendations(t *testing.T) {
	engine := newTestEngine(newFakeQueue(), newFakeRepo(), newFakeAssigner())

	near := engineTask(t, "ZONE-A")
	nearLoc := domain.NewLocation("A1", "02", "1", "01")
	near.Location = &nearLoc

	far := engineTask(t, "ZONE-B")
	farLoc := domain.NewLocation("A9", "01", "1", "01")
	far.Location = &farLoc

	wrongType := engineTask(t, "ZONE-A")
	wrongType.Type = domain.TaskTypePack

	worker := pickWorker("WORKER-001", "ZONE-A")
	loc := domain.NewLocation("A1", "01", "1", "01")
	worker.CurrentLocation = &loc

	recs := engine.GetTaskRecommendations(worker, []*domain.WorkTask{far, near, wrongType}, 10)
	require.Len(t, recs, 2, "tasks the worker cannot perform are excluded")

	assert.Equal(t, near.TaskID, recs[0].Task.TaskID)
	assert.Greater(t, recs[0].Score, recs[1].Score)

	// One bay apart: distance 10, at 6s per unit
	assert.Equal(t, 60*time.Second, recs[0].EstimatedWalkTime)

	limited := engine.GetTaskRecommendations(worker, []*domain.WorkTask{far, near}, 1)
	assert.Len(t, limited, 1)
}
