package assignment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/metrics"
)

// Errors
var (
	ErrNoEligibleWorkers    = errors.New("no eligible workers available")
	ErrAllAssignmentsFailed = errors.New("all assignment attempts failed")
)

// walkSecondsPerDistanceUnit converts location distance into walk time
const walkSecondsPerDistanceUnit = 6

// TaskAssigner assigns a queued task to a worker, persisting the change
type TaskAssigner interface {
	AssignTask(ctx context.Context, taskID, workerID string) (*domain.WorkTask, error)
}

// TaskRecommendation pairs a candidate task with its fit for a worker
type TaskRecommendation struct {
	Task              *domain.WorkTask `json:"task"`
	Score             float64          `json:"score"`
	EstimatedWalkTime time.Duration    `json:"estimatedWalkTimeSeconds"`
}

// BatchAssignment is the outcome of one task in a batch assignment
type BatchAssignment struct {
	TaskID   string `json:"taskId"`
	WorkerID string `json:"workerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Engine matches queued tasks with workers. Matching is greedy: it scores
// candidates and takes the best available, not a globally optimal pairing.
type Engine struct {
	queue    domain.TaskQueue
	repo     domain.WorkTaskRepository
	assigner TaskAssigner
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewEngine creates an assignment engine
func NewEngine(queue domain.TaskQueue, repo domain.WorkTaskRepository, assigner TaskAssigner, logger *logging.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		queue:    queue,
		repo:     repo,
		assigner: assigner,
		logger:   logger.WithComponent("assignment-engine"),
		metrics:  m,
	}
}

// GetNextTaskForWorker pops the most urgent task the worker can perform in
// their current zone and assigns it. Returns nil when no work is available.
// If the assignment fails after the pop, the task is re-enqueued once so it
// is not lost, and the worker gets an empty result.
func (e *Engine) GetNextTaskForWorker(ctx context.Context, worker Worker) (*domain.WorkTask, error) {
	for _, capability := range worker.Capabilities {
		taskID, err := e.queue.Dequeue(ctx, worker.WarehouseID, worker.CurrentZone, capability)
		if err != nil {
			return nil, err
		}
		if taskID == "" {
			continue
		}

		task, err := e.assigner.AssignTask(ctx, taskID, worker.WorkerID)
		if err != nil {
			e.logger.WithError(err).Warn("Assignment failed after dequeue, re-enqueueing task",
				"taskId", taskID, "workerId", worker.WorkerID)
			e.requeue(ctx, taskID)
			e.recordAssignment("requeued")
			return nil, nil
		}

		e.recordAssignment("assigned")
		return task, nil
	}

	return nil, nil
}

// requeue puts a popped task back on its queue after a failed assignment.
// Best effort: a task that cannot be restored is logged and left to the
// overdue sweep.
func (e *Engine) requeue(ctx context.Context, taskID string) {
	task, err := e.repo.FindByID(ctx, taskID)
	if err != nil || task == nil {
		e.logger.Error("Could not reload task for re-enqueue", "taskId", taskID, "error", err)
		return
	}
	if task.Status != domain.TaskStatusQueued {
		return
	}
	if err := e.queue.Enqueue(ctx, task); err != nil {
		e.logger.WithError(err).Error("Could not re-enqueue task", "taskId", taskID)
	}
}

// AssignTaskToBestWorker scores all eligible workers for the task and assigns
// it to the best one, trying the next candidate when an attempt fails
func (e *Engine) AssignTaskToBestWorker(ctx context.Context, task *domain.WorkTask, workers []Worker) (*domain.WorkTask, error) {
	eligible := e.eligibleWorkers(task, workers)
	if len(eligible) == 0 {
		e.recordAssignment("no_eligible_workers")
		return nil, ErrNoEligibleWorkers
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return e.scoreWorker(eligible[i], task) > e.scoreWorker(eligible[j], task)
	})

	for _, worker := range eligible {
		assigned, err := e.assigner.AssignTask(ctx, task.TaskID, worker.WorkerID)
		if err != nil {
			e.logger.WithError(err).Warn("Assignment attempt failed",
				"taskId", task.TaskID, "workerId", worker.WorkerID)
			continue
		}
		e.recordAssignment("assigned")
		return assigned, nil
	}

	e.recordAssignment("exhausted")
	return nil, ErrAllAssignmentsFailed
}

// BatchAssign assigns tasks in order, removing each matched worker from the
// pool so no worker is double-booked within the batch
func (e *Engine) BatchAssign(ctx context.Context, tasks []*domain.WorkTask, workers []Worker) []BatchAssignment {
	pool := make([]Worker, len(workers))
	copy(pool, workers)

	results := make([]BatchAssignment, 0, len(tasks))
	for _, task := range tasks {
		assigned, err := e.AssignTaskToBestWorker(ctx, task, pool)
		if err != nil {
			results = append(results, BatchAssignment{TaskID: task.TaskID, Error: err.Error()})
			continue
		}

		results = append(results, BatchAssignment{TaskID: task.TaskID, WorkerID: assigned.AssignedTo})

		for i, w := range pool {
			if w.WorkerID == assigned.AssignedTo {
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}

	return results
}

// GetTaskRecommendations ranks candidate tasks for a worker, best fit first
func (e *Engine) GetTaskRecommendations(worker Worker, tasks []*domain.WorkTask, limit int) []TaskRecommendation {
	recs := make([]TaskRecommendation, 0, len(tasks))
	for _, task := range tasks {
		if !worker.CanPerform(task.Type) || worker.WarehouseID != task.WarehouseID {
			continue
		}
		recs = append(recs, TaskRecommendation{
			Task:              task,
			Score:             e.scoreWorker(worker, task),
			EstimatedWalkTime: e.estimateWalkTime(worker, task),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// eligibleWorkers filters on capability and warehouse only. Worker load is a
// scoring concern, not an eligibility one.
func (e *Engine) eligibleWorkers(task *domain.WorkTask, workers []Worker) []Worker {
	eligible := make([]Worker, 0, len(workers))
	for _, w := range workers {
		if w.CanPerform(task.Type) && w.WarehouseID == task.WarehouseID {
			eligible = append(eligible, w)
		}
	}
	return eligible
}

// scoreWorker rates how good a fit a worker is for a task. Higher is better.
func (e *Engine) scoreWorker(worker Worker, task *domain.WorkTask) float64 {
	score := 100.0

	if worker.CurrentZone == task.Zone {
		score += 30
		if worker.CurrentLocation != nil && task.Location != nil {
			if dist, err := worker.CurrentLocation.Distance(*task.Location); err == nil {
				proximity := 20 - dist/10
				if proximity > 0 {
					score += proximity
				}
			}
		}
	} else {
		score -= 20
	}

	loadPenalty := 20 - float64(worker.ActiveTaskCount)*5
	if loadPenalty > 0 {
		score += loadPenalty
	}

	if worker.HasSpecialization(task.Type) {
		score += 20
	}

	if task.Priority.Value() <= 2 {
		score += 10
	}

	score += worker.PerformanceRating * 10

	return score
}

// estimateWalkTime converts the worker-to-task distance into a walk time
// estimate. Unknown distances estimate to zero.
func (e *Engine) estimateWalkTime(worker Worker, task *domain.WorkTask) time.Duration {
	if worker.CurrentLocation == nil || task.Location == nil {
		return 0
	}
	dist, err := worker.CurrentLocation.Distance(*task.Location)
	if err != nil {
		return 0
	}
	return time.Duration(dist*walkSecondsPerDistanceUnit) * time.Second
}

func (e *Engine) recordAssignment(outcome string) {
	if e.metrics != nil {
		e.metrics.RecordAssignment(outcome)
	}
}
