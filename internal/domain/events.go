package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// TaskCreatedEvent is published when a work task is created
type TaskCreatedEvent struct {
	TaskID      string    `json:"taskId"`
	TaskType    TaskType  `json:"taskType"`
	Priority    Priority  `json:"priority"`
	WarehouseID string    `json:"warehouseId"`
	Zone        string    `json:"zone"`
	ReferenceID string    `json:"referenceId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *TaskCreatedEvent) EventType() string     { return "wms.task.created" }
func (e *TaskCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// TaskAssignedEvent is published when a task is assigned to a worker
type TaskAssignedEvent struct {
	TaskID      string    `json:"taskId"`
	TaskType    TaskType  `json:"taskType"`
	WorkerID    string    `json:"workerId"`
	WarehouseID string    `json:"warehouseId"`
	Zone        string    `json:"zone"`
	AssignedAt  time.Time `json:"assignedAt"`
}

func (e *TaskAssignedEvent) EventType() string     { return "wms.task.assigned" }
func (e *TaskAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// TaskCompletedEvent is published when a worker completes a task
type TaskCompletedEvent struct {
	TaskID           string    `json:"taskId"`
	TaskType         TaskType  `json:"taskType"`
	WorkerID         string    `json:"workerId"`
	WarehouseID      string    `json:"warehouseId"`
	ReferenceID      string    `json:"referenceId,omitempty"`
	ActualDurationMs int64     `json:"actualDurationMs"`
	CompletedOnTime  bool      `json:"completedOnTime"`
	CompletedAt      time.Time `json:"completedAt"`
}

func (e *TaskCompletedEvent) EventType() string     { return "wms.task.completed" }
func (e *TaskCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// TaskFailedEvent is published when a task fails
type TaskFailedEvent struct {
	TaskID      string    `json:"taskId"`
	TaskType    TaskType  `json:"taskType"`
	WorkerID    string    `json:"workerId"`
	WarehouseID string    `json:"warehouseId"`
	ReferenceID string    `json:"referenceId,omitempty"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failedAt"`
}

func (e *TaskFailedEvent) EventType() string     { return "wms.task.failed" }
func (e *TaskFailedEvent) OccurredAt() time.Time { return e.FailedAt }
