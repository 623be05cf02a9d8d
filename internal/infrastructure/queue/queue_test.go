package queue

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/logging"
)

func newTestQueue(t *testing.T) (*RedisTaskQueue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "task-execution-service-test",
		Output:      io.Discard,
	})

	return NewRedisTaskQueue(client, logger), mr
}

func queueTask(t *testing.T, priority domain.Priority, age time.Duration) *domain.WorkTask {
	t.Helper()

	task, err := domain.NewWorkTask(domain.NewTaskParams{
		Type:        domain.TaskTypePick,
		Priority:    priority,
		WarehouseID: "WH-001",
		Zone:        "ZONE-A",
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
	task.CreatedAt = time.Now().UTC().Add(-age)
	return task
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := queueTask(t, domain.PriorityNormal, 0)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, got)

	// Dequeue removed the entry; the queue is now empty
	got, err = q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDequeueUrgencyOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	// A four-hour-old CRITICAL task must be served before a fresh NORMAL one,
	// regardless of insertion order
	fresh := queueTask(t, domain.PriorityNormal, 0)
	aged := queueTask(t, domain.PriorityCritical, 4*time.Hour)

	require.NoError(t, q.Enqueue(ctx, fresh))
	require.NoError(t, q.Enqueue(ctx, aged))

	first, err := q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, aged.TaskID, first)

	second, err := q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, fresh.TaskID, second)
}

func TestDequeueEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t)

	got, err := q.Dequeue(context.Background(), "WH-001", "ZONE-Z", domain.TaskTypeMove)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDequeueSingleEntryOnce(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := queueTask(t, domain.PriorityNormal, 0)
	require.NoError(t, q.Enqueue(ctx, task))

	const workers = 10
	results := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, got := range results {
		if got != "" {
			winners++
			assert.Equal(t, task.TaskID, got)
		}
	}
	assert.Equal(t, 1, winners, "exactly one worker may receive the task")
}

func TestDequeueRedisUnavailable(t *testing.T) {
	q, mr := newTestQueue(t)
	mr.Close()

	_, err := q.Dequeue(context.Background(), "WH-001", "ZONE-A", domain.TaskTypePick)
	assert.Error(t, err, "a store outage must not look like an empty queue")
}

func TestRemove(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := queueTask(t, domain.PriorityNormal, 0)
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, q.Remove(ctx, task))

	got, err := q.Dequeue(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPeekDoesNotRemove(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := queueTask(t, domain.PriorityNormal, 0)
	require.NoError(t, q.Enqueue(ctx, task))

	peeked, err := q.Peek(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, peeked)

	depth, err := q.Depth(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestStatusAndBacklog(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	status, err := q.Status(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.True(t, status.IsEmpty)
	assert.False(t, status.HasBacklog)

	for i := 0; i < 12; i++ {
		require.NoError(t, q.Enqueue(ctx, queueTask(t, domain.PriorityNormal, 0)))
	}

	status, err = q.Status(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, int64(12), status.Depth)
	assert.False(t, status.IsEmpty)
	assert.True(t, status.HasBacklog)
	assert.NotEmpty(t, status.OldestTaskID)
}

func TestAllStatuses(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	pick := queueTask(t, domain.PriorityNormal, 0)
	require.NoError(t, q.Enqueue(ctx, pick))

	move := queueTask(t, domain.PriorityNormal, 0)
	move.Type = domain.TaskTypeMove
	move.Zone = "ZONE-B"
	require.NoError(t, q.Enqueue(ctx, move))

	statuses, err := q.AllStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byKey := make(map[string]QueueStatus)
	for _, s := range statuses {
		byKey[s.QueueKey] = s
	}
	assert.Contains(t, byKey, QueueKey("WH-001", "ZONE-A", domain.TaskTypePick))
	assert.Contains(t, byKey, QueueKey("WH-001", "ZONE-B", domain.TaskTypeMove))
}

func TestClear(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, queueTask(t, domain.PriorityNormal, 0)))
	}

	dropped, err := q.Clear(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dropped)

	depth, err := q.Depth(ctx, "WH-001", "ZONE-A", domain.TaskTypePick)
	require.NoError(t, err)
	assert.Zero(t, depth)
}
