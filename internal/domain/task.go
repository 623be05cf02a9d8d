package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTaskNotFound      = errors.New("task not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrMissingContext    = errors.New("task context is required")
	ErrContextMismatch   = errors.New("task context does not match task type")
)

// WorkTask is the aggregate root of the task execution bounded context
type WorkTask struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	TaskID      string             `bson:"taskId"`
	Type        TaskType           `bson:"type"`
	Status      TaskStatus         `bson:"status"`
	Priority    Priority           `bson:"priority"`
	WarehouseID string             `bson:"warehouseId"`
	Zone        string             `bson:"zone"`
	Location    *Location          `bson:"location,omitempty"`
	ReferenceID string             `bson:"referenceId,omitempty"`

	// Context is persisted as a type-discriminated subdocument by the repository
	Context TaskContext `bson:"-"`

	Metadata map[string]interface{} `bson:"metadata,omitempty"`

	QueuedAt   *time.Time `bson:"queuedAt,omitempty"`
	AssignedTo string     `bson:"assignedTo,omitempty"`
	AssignedAt *time.Time `bson:"assignedAt,omitempty"`
	AcceptedAt *time.Time `bson:"acceptedAt,omitempty"`
	StartedAt  *time.Time `bson:"startedAt,omitempty"`

	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	Deadline    *time.Time `bson:"deadline,omitempty"`

	EstimatedDuration time.Duration `bson:"estimatedDurationNs"`
	ActualDuration    time.Duration `bson:"actualDurationNs,omitempty"`

	FailureReason      string `bson:"failureReason,omitempty"`
	CancellationReason string `bson:"cancellationReason,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
	Version   int64     `bson:"version"`

	DomainEvents []DomainEvent `bson:"-"`
}

// NewTaskParams holds the inputs for creating a work task
type NewTaskParams struct {
	Type              TaskType
	Priority          Priority
	WarehouseID       string
	Zone              string
	Location          *Location
	Context           TaskContext
	ReferenceID       string
	EstimatedDuration time.Duration
	Deadline          *time.Time
	Metadata          map[string]interface{}
}

// NewWorkTask creates a work task in PENDING state and records a created event
func NewWorkTask(params NewTaskParams) (*WorkTask, error) {
	if !params.Type.IsValid() {
		return nil, fmt.Errorf("unknown task type: %s", params.Type)
	}
	if params.WarehouseID == "" {
		return nil, requiredField("warehouseId")
	}
	if params.Context == nil {
		return nil, ErrMissingContext
	}
	if params.Context.TaskType() != params.Type {
		return nil, ErrContextMismatch
	}
	if err := params.Context.Validate(); err != nil {
		return nil, err
	}

	metadata := make(map[string]interface{})
	for k, v := range params.Context.Metadata() {
		metadata[k] = v
	}
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	now := time.Now().UTC()
	task := &WorkTask{
		TaskID:            newTaskID(),
		Type:              params.Type,
		Status:            TaskStatusPending,
		Priority:          params.Priority,
		WarehouseID:       params.WarehouseID,
		Zone:              params.Zone,
		Location:          params.Location,
		ReferenceID:       params.ReferenceID,
		Context:           params.Context,
		Metadata:          metadata,
		EstimatedDuration: params.EstimatedDuration,
		Deadline:          params.Deadline,
		CreatedAt:         now,
		UpdatedAt:         now,
		DomainEvents:      make([]DomainEvent, 0),
	}

	task.AddDomainEvent(&TaskCreatedEvent{
		TaskID:      task.TaskID,
		TaskType:    task.Type,
		Priority:    task.Priority,
		WarehouseID: task.WarehouseID,
		Zone:        task.Zone,
		ReferenceID: task.ReferenceID,
		CreatedAt:   now,
	})

	return task, nil
}

func newTaskID() string {
	return "TASK-" + strings.ToUpper(uuid.New().String()[:8])
}

func (t *WorkTask) transitionTo(target TaskStatus) error {
	if !t.Status.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition from %s to %s: %w", t.Status, target, ErrInvalidTransition)
	}
	t.Status = target
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Queue moves the task from PENDING to QUEUED
func (t *WorkTask) Queue() error {
	if err := t.transitionTo(TaskStatusQueued); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.QueuedAt = &now
	return nil
}

// Assign assigns the task to a worker
func (t *WorkTask) Assign(workerID string) error {
	if workerID == "" {
		return requiredField("workerId")
	}
	if err := t.transitionTo(TaskStatusAssigned); err != nil {
		return err
	}

	now := time.Now().UTC()
	t.AssignedTo = workerID
	t.AssignedAt = &now

	t.AddDomainEvent(&TaskAssignedEvent{
		TaskID:      t.TaskID,
		TaskType:    t.Type,
		WorkerID:    workerID,
		WarehouseID: t.WarehouseID,
		Zone:        t.Zone,
		AssignedAt:  now,
	})

	return nil
}

// ensureAssigned guards operations that only an assigned worker may perform
func (t *WorkTask) ensureAssigned() error {
	if t.AssignedTo == "" {
		return fmt.Errorf("task %s has no assigned worker: %w", t.TaskID, ErrInvalidTransition)
	}
	return nil
}

// Accept acknowledges the assignment
func (t *WorkTask) Accept() error {
	if err := t.ensureAssigned(); err != nil {
		return err
	}
	if err := t.transitionTo(TaskStatusAccepted); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.AcceptedAt = &now
	return nil
}

// Reject returns an assigned task to the queue. The assignment is cleared
// and no event is emitted; the task becomes available for other workers.
func (t *WorkTask) Reject(reason string) error {
	if t.Status != TaskStatusAssigned {
		return fmt.Errorf("cannot reject task in status %s: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = TaskStatusQueued
	t.AssignedTo = ""
	t.AssignedAt = nil
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Start begins work on an accepted task
func (t *WorkTask) Start() error {
	if err := t.ensureAssigned(); err != nil {
		return err
	}
	if err := t.transitionTo(TaskStatusInProgress); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.StartedAt = &now
	return nil
}

// Complete finishes the task, recording the actual duration. A task with no
// deadline never counts as completed on time.
func (t *WorkTask) Complete() error {
	if err := t.ensureAssigned(); err != nil {
		return err
	}
	if err := t.transitionTo(TaskStatusCompleted); err != nil {
		return err
	}

	now := time.Now().UTC()
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.ActualDuration = now.Sub(*t.StartedAt)
	}

	onTime := t.Deadline != nil && !now.After(*t.Deadline)
	t.AddDomainEvent(&TaskCompletedEvent{
		TaskID:           t.TaskID,
		TaskType:         t.Type,
		WorkerID:         t.AssignedTo,
		WarehouseID:      t.WarehouseID,
		ReferenceID:      t.ReferenceID,
		ActualDurationMs: t.ActualDuration.Milliseconds(),
		CompletedOnTime:  onTime,
		CompletedAt:      now,
	})

	return nil
}

// Fail marks the task as failed, recording the time spent on it
func (t *WorkTask) Fail(reason string) error {
	if err := t.transitionTo(TaskStatusFailed); err != nil {
		return err
	}
	t.FailureReason = reason

	now := time.Now().UTC()
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.ActualDuration = now.Sub(*t.StartedAt)
	}

	t.AddDomainEvent(&TaskFailedEvent{
		TaskID:      t.TaskID,
		TaskType:    t.Type,
		WorkerID:    t.AssignedTo,
		WarehouseID: t.WarehouseID,
		ReferenceID: t.ReferenceID,
		Reason:      reason,
		FailedAt:    now,
	})

	return nil
}

// Cancel cancels the task from any non-terminal state
func (t *WorkTask) Cancel(reason string) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("cannot cancel task in status %s: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = TaskStatusCancelled
	t.CancellationReason = reason
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsOverdue reports whether the task is past its deadline at the given time.
// Terminal tasks are never overdue.
func (t *WorkTask) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && !t.Status.IsTerminal() && now.After(*t.Deadline)
}

// Complexity returns the context-derived complexity score
func (t *WorkTask) Complexity() float64 {
	if t.Context == nil {
		return 1.0
	}
	return t.Context.ComplexityScore()
}

// QueueScore computes the ordering score for the task queue. Lower scores are
// more urgent: urgency grows with age, overdue tasks jump the line, and
// complex tasks yield to quick ones at equal priority.
func (t *WorkTask) QueueScore(now time.Time) float64 {
	score := float64(t.Priority.Value()) * 1000

	ageMinutes := now.Sub(t.CreatedAt).Minutes()
	score -= ageMinutes

	if t.IsOverdue(now) {
		score -= 10000
	}

	score += t.Complexity() * 100

	return score
}

// GetPerformanceRatio returns actual over estimated duration, or 1.0 when
// either side is unknown
func (t *WorkTask) GetPerformanceRatio() float64 {
	if t.EstimatedDuration <= 0 || t.ActualDuration <= 0 {
		return 1.0
	}
	return t.ActualDuration.Seconds() / t.EstimatedDuration.Seconds()
}

// AddDomainEvent records a domain event on the aggregate
func (t *WorkTask) AddDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// PullDomainEvents returns and clears the recorded events
func (t *WorkTask) PullDomainEvents() []DomainEvent {
	events := t.DomainEvents
	t.DomainEvents = nil
	return events
}
