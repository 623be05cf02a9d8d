package events

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/task-execution-service/internal/application"
	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/cloudevents"
	"github.com/wms-platform/task-execution-service/pkg/logging"
)

type fakeTaskCreator struct {
	commands []application.CreateTaskCommand
	failFor  map[string]error // referenceID -> error
}

func (f *fakeTaskCreator) CreateTask(_ context.Context, cmd application.CreateTaskCommand) (*domain.WorkTask, error) {
	if err, ok := f.failFor[cmd.ReferenceID]; ok {
		return nil, err
	}
	f.commands = append(f.commands, cmd)
	return &domain.WorkTask{TaskID: "TASK-" + cmd.ReferenceID}, nil
}

func newTestWaveConsumer(t *testing.T) (*WaveConsumer, *fakeTaskCreator) {
	t.Helper()

	creator := &fakeTaskCreator{failFor: make(map[string]error)}
	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "task-execution-service-test",
		Output:      io.Discard,
	})
	return NewWaveConsumer(creator, logger, nil), creator
}

func waveEvent(data interface{}) *cloudevents.WMSCloudEvent {
	return &cloudevents.WMSCloudEvent{
		SpecVersion: "1.0",
		Type:        cloudevents.WaveReleased,
		Source:      "wave-planning-service",
		ID:          "evt-001",
		Data:        data,
	}
}

func TestHandleWaveReleasedCreatesTaskPerOrder(t *testing.T) {
	consumer, creator := newTestWaveConsumer(t)

	err := consumer.HandleWaveReleased(context.Background(), waveEvent(map[string]interface{}{
		"waveId":       "WAVE-001",
		"warehouseId":  "WH-001",
		"assignedZone": "ZONE-A",
		"priority":     "HIGH",
		"orderIds":     []string{"ORDER-001", "ORDER-002", "ORDER-003"},
	}))
	require.NoError(t, err)

	require.Len(t, creator.commands, 3)
	for i, orderID := range []string{"ORDER-001", "ORDER-002", "ORDER-003"} {
		cmd := creator.commands[i]
		assert.Equal(t, "PICK", cmd.Type)
		assert.Equal(t, "HIGH", cmd.Priority)
		assert.Equal(t, "WH-001", cmd.WarehouseID)
		assert.Equal(t, "ZONE-A", cmd.Zone)
		assert.Equal(t, orderID, cmd.ReferenceID)
	}

	taskContext, err := domain.UnmarshalContextJSON(domain.TaskTypePick, creator.commands[0].Context)
	require.NoError(t, err)
	pick, ok := taskContext.(*domain.PickContext)
	require.True(t, ok)
	assert.Equal(t, "WAVE-001", pick.WaveID)
	assert.Equal(t, "ORDER-001", pick.OrderID)
	assert.Equal(t, domain.PickStrategyDiscrete, pick.Strategy)
	require.Len(t, pick.Instructions, 1)
	assert.Equal(t, "LPN-ORDER-001", pick.Instructions[0].LPN)
	assert.NoError(t, pick.Validate())
}

func TestHandleWaveReleasedWarehouseFromExtension(t *testing.T) {
	consumer, creator := newTestWaveConsumer(t)

	event := waveEvent(map[string]interface{}{
		"waveId":       "WAVE-002",
		"assignedZone": "ZONE-B",
		"orderIds":     []string{"ORDER-010"},
	})
	event.WarehouseID = "WH-002"

	require.NoError(t, consumer.HandleWaveReleased(context.Background(), event))
	require.Len(t, creator.commands, 1)
	assert.Equal(t, "WH-002", creator.commands[0].WarehouseID)
}

func TestHandleWaveReleasedSkipsFailedOrders(t *testing.T) {
	consumer, creator := newTestWaveConsumer(t)
	creator.failFor["ORDER-002"] = errors.New("save failed")

	err := consumer.HandleWaveReleased(context.Background(), waveEvent(map[string]interface{}{
		"waveId":      "WAVE-003",
		"warehouseId": "WH-001",
		"orderIds":    []string{"ORDER-001", "ORDER-002", "ORDER-003"},
	}))

	require.NoError(t, err, "a partially failed wave must still be committed")
	require.Len(t, creator.commands, 2)
	assert.Equal(t, "ORDER-001", creator.commands[0].ReferenceID)
	assert.Equal(t, "ORDER-003", creator.commands[1].ReferenceID)
}

func TestHandleWaveReleasedMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{"missing waveId", map[string]interface{}{"warehouseId": "WH-001", "orderIds": []string{"ORDER-001"}}},
		{"missing warehouseId", map[string]interface{}{"waveId": "WAVE-004", "orderIds": []string{"ORDER-001"}}},
		{"no orders", map[string]interface{}{"waveId": "WAVE-004", "warehouseId": "WH-001", "orderIds": []string{}}},
		{"wrong shape", map[string]interface{}{"orderIds": "not-a-list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer, creator := newTestWaveConsumer(t)

			err := consumer.HandleWaveReleased(context.Background(), waveEvent(tt.data))
			assert.NoError(t, err, "malformed waves are dropped, not retried")
			assert.Empty(t, creator.commands)
		})
	}
}
