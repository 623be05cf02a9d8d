package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/logging"
)

const (
	queueKeyPrefix = "task:queue"
	backlogDepth   = 10
)

// QueueStatus is a snapshot of a single task queue
type QueueStatus struct {
	QueueKey     string          `json:"queueKey"`
	WarehouseID  string          `json:"warehouseId"`
	Zone         string          `json:"zone"`
	TaskType     domain.TaskType `json:"taskType"`
	Depth        int64           `json:"depth"`
	OldestTaskID string          `json:"oldestTaskId,omitempty"`
	IsEmpty      bool            `json:"isEmpty"`
	HasBacklog   bool            `json:"hasBacklog"`
}

// RedisTaskQueue implements domain.TaskQueue on Redis sorted sets. Tasks are
// scored with WorkTask.QueueScore, so ZPOPMIN always yields the most urgent
// entry, atomically.
type RedisTaskQueue struct {
	client *redis.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewRedisTaskQueue creates a queue manager on the given Redis client
func NewRedisTaskQueue(client *redis.Client, logger *logging.Logger) *RedisTaskQueue {
	return &RedisTaskQueue{
		client: client,
		logger: logger.WithComponent("task-queue"),
		now:    time.Now,
	}
}

// QueueKey builds the sorted set key for a (warehouse, zone, type) queue
func QueueKey(warehouseID, zone string, taskType domain.TaskType) string {
	return fmt.Sprintf("%s:%s:%s:%s", queueKeyPrefix, warehouseID, zone, taskType)
}

// Enqueue adds a task to its queue, scored by urgency
func (q *RedisTaskQueue) Enqueue(ctx context.Context, task *domain.WorkTask) error {
	key := QueueKey(task.WarehouseID, task.Zone, task.Type)
	score := task.QueueScore(q.now())

	if err := q.client.ZAdd(ctx, key, redis.Z{Score: score, Member: task.TaskID}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s to %s: %w", task.TaskID, key, err)
	}

	q.logger.Debug("Task enqueued", "taskId", task.TaskID, "queue", key, "score", score)
	return nil
}

// Dequeue atomically removes and returns the most urgent task ID from a queue.
// Returns "" with a nil error when the queue is empty; Redis failures are
// returned as errors so callers can tell an outage apart from an empty queue.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (string, error) {
	key := QueueKey(warehouseID, zone, taskType)

	entries, err := q.client.ZPopMin(ctx, key, 1).Result()
	if err != nil {
		return "", fmt.Errorf("failed to dequeue from %s: %w", key, err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	taskID, _ := entries[0].Member.(string)
	q.logger.Debug("Task dequeued", "taskId", taskID, "queue", key)
	return taskID, nil
}

// Remove deletes a task from its queue, for example after direct assignment
// or cancellation
func (q *RedisTaskQueue) Remove(ctx context.Context, task *domain.WorkTask) error {
	key := QueueKey(task.WarehouseID, task.Zone, task.Type)
	if err := q.client.ZRem(ctx, key, task.TaskID).Err(); err != nil {
		return fmt.Errorf("failed to remove task %s from %s: %w", task.TaskID, key, err)
	}
	return nil
}

// Peek returns the most urgent task ID without removing it, or "" when empty
func (q *RedisTaskQueue) Peek(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (string, error) {
	key := QueueKey(warehouseID, zone, taskType)

	entries, err := q.client.ZRange(ctx, key, 0, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to peek %s: %w", key, err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0], nil
}

// Depth returns the number of tasks waiting in a queue
func (q *RedisTaskQueue) Depth(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (int64, error) {
	key := QueueKey(warehouseID, zone, taskType)

	depth, err := q.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read depth of %s: %w", key, err)
	}
	return depth, nil
}

// Status returns a snapshot of a single queue
func (q *RedisTaskQueue) Status(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (QueueStatus, error) {
	depth, err := q.Depth(ctx, warehouseID, zone, taskType)
	if err != nil {
		return QueueStatus{}, err
	}

	oldest, err := q.Peek(ctx, warehouseID, zone, taskType)
	if err != nil {
		return QueueStatus{}, err
	}

	return QueueStatus{
		QueueKey:     QueueKey(warehouseID, zone, taskType),
		WarehouseID:  warehouseID,
		Zone:         zone,
		TaskType:     taskType,
		Depth:        depth,
		OldestTaskID: oldest,
		IsEmpty:      depth == 0,
		HasBacklog:   depth > backlogDepth,
	}, nil
}

// AllStatuses scans all task queues and returns their snapshots
func (q *RedisTaskQueue) AllStatuses(ctx context.Context) ([]QueueStatus, error) {
	var statuses []QueueStatus
	var cursor uint64

	for {
		keys, next, err := q.client.Scan(ctx, cursor, queueKeyPrefix+":*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan task queues: %w", err)
		}

		for _, key := range keys {
			warehouseID, zone, taskType, ok := parseQueueKey(key)
			if !ok {
				continue
			}
			status, err := q.Status(ctx, warehouseID, zone, taskType)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return statuses, nil
}

// Clear empties a queue and returns the number of entries dropped
func (q *RedisTaskQueue) Clear(ctx context.Context, warehouseID, zone string, taskType domain.TaskType) (int64, error) {
	key := QueueKey(warehouseID, zone, taskType)

	depth, err := q.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", key, err)
	}
	if err := q.client.Del(ctx, key).Err(); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", key, err)
	}

	q.logger.Info("Queue cleared", "queue", key, "dropped", depth)
	return depth, nil
}

func parseQueueKey(key string) (warehouseID, zone string, taskType domain.TaskType, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 || parts[0]+":"+parts[1] != queueKeyPrefix {
		return "", "", "", false
	}
	return parts[2], parts[3], domain.TaskType(parts[4]), true
}
