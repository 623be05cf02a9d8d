package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/metrics"
)

// TaskManagementService orchestrates the work task lifecycle: it loads the
// aggregate, applies the domain operation, persists the result, and publishes
// the recorded events. Event publication is fire-and-forget: a publish
// failure is logged but never fails the operation.
type TaskManagementService struct {
	repo       domain.WorkTaskRepository
	queue      domain.TaskQueue
	publisher  domain.EventPublisher
	calculator *domain.TaskPriorityCalculator
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewTaskManagementService creates the application service
func NewTaskManagementService(
	repo domain.WorkTaskRepository,
	queue domain.TaskQueue,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *TaskManagementService {
	return &TaskManagementService{
		repo:       repo,
		queue:      queue,
		publisher:  publisher,
		calculator: domain.NewTaskPriorityCalculator(),
		logger:     logger.WithComponent("task-service"),
		metrics:    m,
	}
}

// CreateTask creates a work task, queues it, and enqueues it for dispatch
func (s *TaskManagementService) CreateTask(ctx context.Context, cmd CreateTaskCommand) (*domain.WorkTask, error) {
	taskType := domain.TaskType(strings.ToUpper(cmd.Type))
	if !taskType.IsValid() {
		return nil, fmt.Errorf("invalid task type: %s", cmd.Type)
	}

	taskContext, err := domain.UnmarshalContextJSON(taskType, cmd.Context)
	if err != nil {
		return nil, err
	}

	var location *domain.Location
	if cmd.Location != "" {
		loc, err := domain.LocationFromCode(cmd.Location)
		if err != nil {
			return nil, err
		}
		location = &loc
	}

	task, err := domain.NewWorkTask(domain.NewTaskParams{
		Type:              taskType,
		Priority:          domain.PriorityFromString(cmd.Priority),
		WarehouseID:       cmd.WarehouseID,
		Zone:              cmd.Zone,
		Location:          location,
		Context:           taskContext,
		ReferenceID:       cmd.ReferenceID,
		EstimatedDuration: time.Duration(cmd.EstimatedDurationMinutes) * time.Minute,
		Deadline:          cmd.Deadline,
		Metadata:          cmd.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := task.Queue(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("task %s saved but could not be enqueued: %w", task.TaskID, err)
	}

	s.publishEvents(ctx, task)
	if s.metrics != nil {
		s.metrics.RecordTaskCreated(string(task.Type), string(task.Priority))
	}
	s.updateQueueDepth(ctx, task)

	s.logger.Info("Task created",
		"taskId", task.TaskID, "type", task.Type, "priority", task.Priority,
		"warehouseId", task.WarehouseID, "zone", task.Zone)

	return task, nil
}

// GetTask loads a task by ID
func (s *TaskManagementService) GetTask(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found: %w", taskID, domain.ErrTaskNotFound)
	}
	return task, nil
}

// AssignTask assigns a queued task to a worker. It also removes the task from
// the dispatch queue so direct assignments do not leave stale queue entries.
func (s *TaskManagementService) AssignTask(ctx context.Context, taskID, workerID string) (*domain.WorkTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Assign(workerID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	if err := s.queue.Remove(ctx, task); err != nil {
		s.logger.WithError(err).Warn("Could not remove assigned task from queue", "taskId", task.TaskID)
	}

	s.publishEvents(ctx, task)
	s.updateQueueDepth(ctx, task)

	s.logger.Info("Task assigned", "taskId", task.TaskID, "workerId", workerID)
	return task, nil
}

// AcceptTask acknowledges an assignment
func (s *TaskManagementService) AcceptTask(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	return s.mutate(ctx, taskID, func(task *domain.WorkTask) error {
		return task.Accept()
	})
}

// RejectTask returns an assigned task to the dispatch queue
func (s *TaskManagementService) RejectTask(ctx context.Context, taskID, reason string) (*domain.WorkTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Reject(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("task %s rejected but could not be re-enqueued: %w", task.TaskID, err)
	}

	s.updateQueueDepth(ctx, task)
	s.logger.Info("Task rejected and re-queued", "taskId", task.TaskID, "reason", reason)
	return task, nil
}

// StartTask begins work on an accepted task
func (s *TaskManagementService) StartTask(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	return s.mutate(ctx, taskID, func(task *domain.WorkTask) error {
		return task.Start()
	})
}

// CompleteTask finishes a task and records whether the deadline was met
func (s *TaskManagementService) CompleteTask(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	task, err := s.mutate(ctx, taskID, func(task *domain.WorkTask) error {
		return task.Complete()
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		onTime := task.Deadline != nil &&
			task.CompletedAt != nil && !task.CompletedAt.After(*task.Deadline)
		s.metrics.RecordTaskCompleted(string(task.Type), onTime)
	}
	s.logger.Info("Task completed",
		"taskId", task.TaskID, "workerId", task.AssignedTo,
		"actualDurationMinutes", task.ActualDuration.Minutes())
	return task, nil
}

// FailTask marks an in-progress task as failed
func (s *TaskManagementService) FailTask(ctx context.Context, taskID, reason string) (*domain.WorkTask, error) {
	task, err := s.mutate(ctx, taskID, func(task *domain.WorkTask) error {
		return task.Fail(reason)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTaskFailed(string(task.Type))
	}
	s.logger.Warn("Task failed", "taskId", task.TaskID, "reason", reason)
	return task, nil
}

// CancelTask cancels a non-terminal task and drops it from the dispatch queue
func (s *TaskManagementService) CancelTask(ctx context.Context, taskID, reason string) (*domain.WorkTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	wasQueued := task.Status == domain.TaskStatusQueued
	if err := task.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}

	if wasQueued {
		if err := s.queue.Remove(ctx, task); err != nil {
			s.logger.WithError(err).Warn("Could not remove cancelled task from queue", "taskId", task.TaskID)
		}
		s.updateQueueDepth(ctx, task)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCancelled(string(task.Type))
	}
	s.logger.Info("Task cancelled", "taskId", task.TaskID, "reason", reason)
	return task, nil
}

// GetTasksByStatus returns tasks in the given status
func (s *TaskManagementService) GetTasksByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return s.repo.FindByStatus(ctx, status)
}

// GetTasksByWorker returns all tasks ever assigned to a worker
func (s *TaskManagementService) GetTasksByWorker(ctx context.Context, workerID string) ([]*domain.WorkTask, error) {
	return s.repo.FindByWorker(ctx, workerID)
}

// GetActiveTasksByWorker returns the worker's assigned, accepted, and
// in-progress tasks
func (s *TaskManagementService) GetActiveTasksByWorker(ctx context.Context, workerID string) ([]*domain.WorkTask, error) {
	return s.repo.FindActiveByWorker(ctx, workerID)
}

// GetTasksByTypeAndStatus returns tasks of a type in the given status
func (s *TaskManagementService) GetTasksByTypeAndStatus(ctx context.Context, taskType domain.TaskType, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return s.repo.FindByTypeAndStatus(ctx, taskType, status)
}

// GetTasksByWarehouseAndStatus returns a warehouse's tasks in the given status
func (s *TaskManagementService) GetTasksByWarehouseAndStatus(ctx context.Context, warehouseID string, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return s.repo.FindByWarehouseAndStatus(ctx, warehouseID, status)
}

// GetTasksByZoneAndStatus returns a zone's tasks in the given status
func (s *TaskManagementService) GetTasksByZoneAndStatus(ctx context.Context, zone string, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return s.repo.FindByZoneAndStatus(ctx, zone, status)
}

// GetQueuedTasksByZone returns a zone's queued tasks, used for building
// task recommendations
func (s *TaskManagementService) GetQueuedTasksByZone(ctx context.Context, warehouseID, zone string) ([]*domain.WorkTask, error) {
	return s.repo.FindQueuedByZone(ctx, warehouseID, zone)
}

// GetTasksByReference returns tasks linked to an external reference
func (s *TaskManagementService) GetTasksByReference(ctx context.Context, referenceID string) ([]*domain.WorkTask, error) {
	return s.repo.FindByReference(ctx, referenceID)
}

// GetOverdueTasks returns non-terminal tasks past their deadline
func (s *TaskManagementService) GetOverdueTasks(ctx context.Context) ([]*domain.WorkTask, error) {
	return s.repo.FindOverdue(ctx, time.Now().UTC())
}

// RecommendPriorityAdjustments evaluates a warehouse's queued tasks against
// the current system load and flags those whose priority has drifted
func (s *TaskManagementService) RecommendPriorityAdjustments(ctx context.Context, warehouseID string, load domain.SystemLoadMetrics) ([]domain.PriorityAdjustment, error) {
	tasks, err := s.repo.FindByWarehouseAndStatus(ctx, warehouseID, domain.TaskStatusQueued)
	if err != nil {
		return nil, err
	}

	adjustments := make([]domain.PriorityAdjustment, 0, len(tasks))
	for _, task := range tasks {
		adjustment := s.calculator.RecommendAdjustment(task, load)
		if adjustment.AdjustmentRecommended {
			adjustments = append(adjustments, adjustment)
		}
	}
	return adjustments, nil
}

func (s *TaskManagementService) mutate(ctx context.Context, taskID string, op func(*domain.WorkTask) error) (*domain.WorkTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := op(task); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, task)
	return task, nil
}

func (s *TaskManagementService) publishEvents(ctx context.Context, task *domain.WorkTask) {
	events := task.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithError(err).Warn("Event publication failed", "taskId", task.TaskID)
	}
}

func (s *TaskManagementService) updateQueueDepth(ctx context.Context, task *domain.WorkTask) {
	if s.metrics == nil {
		return
	}
	depth, err := s.queue.Depth(ctx, task.WarehouseID, task.Zone, task.Type)
	if err != nil {
		return
	}
	s.metrics.SetQueueDepth(task.WarehouseID, task.Zone, string(task.Type), depth)
}
