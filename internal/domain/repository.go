package domain

import (
	"context"
	"time"
)

// WorkTaskRepository defines the interface for work task persistence.
// Save enforces optimistic concurrency on the aggregate version and returns
// ErrVersionConflict when the stored version has moved on.
type WorkTaskRepository interface {
	Save(ctx context.Context, task *WorkTask) error
	FindByID(ctx context.Context, taskID string) (*WorkTask, error)
	FindByWorker(ctx context.Context, workerID string) ([]*WorkTask, error)
	FindActiveByWorker(ctx context.Context, workerID string) ([]*WorkTask, error)
	FindByStatus(ctx context.Context, status TaskStatus) ([]*WorkTask, error)
	FindByTypeAndStatus(ctx context.Context, taskType TaskType, status TaskStatus) ([]*WorkTask, error)
	FindByWarehouseAndStatus(ctx context.Context, warehouseID string, status TaskStatus) ([]*WorkTask, error)
	FindByZoneAndStatus(ctx context.Context, zone string, status TaskStatus) ([]*WorkTask, error)
	FindQueuedByZone(ctx context.Context, warehouseID, zone string) ([]*WorkTask, error)
	FindOverdue(ctx context.Context, now time.Time) ([]*WorkTask, error)
	FindByReference(ctx context.Context, referenceID string) ([]*WorkTask, error)
	CountActiveByWorker(ctx context.Context, workerID string) (int64, error)
	Delete(ctx context.Context, taskID string) error
}

// TaskQueue defines the ordered, per-(warehouse, zone, type) task queue.
// Dequeue atomically removes and returns the most urgent task ID, or ""
// with a nil error when the queue is empty.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *WorkTask) error
	Dequeue(ctx context.Context, warehouseID, zone string, taskType TaskType) (string, error)
	Remove(ctx context.Context, task *WorkTask) error
	Peek(ctx context.Context, warehouseID, zone string, taskType TaskType) (string, error)
	Depth(ctx context.Context, warehouseID, zone string, taskType TaskType) (int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
