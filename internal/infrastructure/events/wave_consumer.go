package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wms-platform/task-execution-service/internal/application"
	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/cloudevents"
	"github.com/wms-platform/task-execution-service/pkg/kafka"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/metrics"
)

// TaskCreator is the slice of the application service the wave consumer needs
type TaskCreator interface {
	CreateTask(ctx context.Context, cmd application.CreateTaskCommand) (*domain.WorkTask, error)
}

// WaveReleasedPayload is the wave-planning service's released-wave message.
// It is an external contract: fields are translated into task commands here
// and never leak further into the domain.
type WaveReleasedPayload struct {
	WaveID       string   `json:"waveId"`
	WarehouseID  string   `json:"warehouseId"`
	AssignedZone string   `json:"assignedZone"`
	Priority     string   `json:"priority"`
	OrderIDs     []string `json:"orderIds"`
}

// WaveConsumer turns released waves into queued PICK tasks, one per order
type WaveConsumer struct {
	tasks   TaskCreator
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewWaveConsumer creates the wave-released consumer
func NewWaveConsumer(tasks TaskCreator, logger *logging.Logger, m *metrics.Metrics) *WaveConsumer {
	return &WaveConsumer{
		tasks:   tasks,
		logger:  logger.WithComponent("wave-consumer"),
		metrics: m,
	}
}

// Register subscribes the consumer to the wave events topic
func (c *WaveConsumer) Register(consumer *kafka.Consumer) {
	consumer.Subscribe(kafka.Topics.WaveEvents, cloudevents.WaveReleased, c.HandleWaveReleased)
}

// HandleWaveReleased creates one PICK task per order in the released wave.
// Per-order create failures are logged and skipped rather than retried, so a
// redelivered wave does not duplicate the orders that already succeeded.
func (c *WaveConsumer) HandleWaveReleased(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	payload, err := decodeWavePayload(event)
	if err != nil {
		c.recordConsume(event.Type, false)
		c.logger.WithError(err).Error("Dropping malformed wave event", "eventId", event.ID)
		return nil
	}

	created := 0
	for _, orderID := range payload.OrderIDs {
		cmd, err := pickTaskCommand(payload, orderID)
		if err != nil {
			c.logger.WithError(err).Error("Could not build task command",
				"waveId", payload.WaveID, "orderId", orderID)
			continue
		}

		task, err := c.tasks.CreateTask(ctx, cmd)
		if err != nil {
			c.logger.WithError(err).Error("Could not create pick task for order",
				"waveId", payload.WaveID, "orderId", orderID)
			continue
		}

		created++
		c.logger.Info("Pick task created from wave",
			"waveId", payload.WaveID, "orderId", orderID, "taskId", task.TaskID)
	}

	c.recordConsume(event.Type, true)
	c.logger.Info("Wave processed",
		"waveId", payload.WaveID, "orders", len(payload.OrderIDs), "tasksCreated", created)
	return nil
}

func decodeWavePayload(event *cloudevents.WMSCloudEvent) (*WaveReleasedPayload, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode wave payload: %w", err)
	}

	var payload WaveReleasedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode wave payload: %w", err)
	}

	if payload.WarehouseID == "" {
		payload.WarehouseID = event.WarehouseID
	}
	if payload.WaveID == "" {
		return nil, fmt.Errorf("wave event %s has no waveId", event.ID)
	}
	if payload.WarehouseID == "" {
		return nil, fmt.Errorf("wave %s has no warehouseId", payload.WaveID)
	}
	if len(payload.OrderIDs) == 0 {
		return nil, fmt.Errorf("wave %s has no orders", payload.WaveID)
	}
	return &payload, nil
}

// pickTaskCommand builds the create command for one order of a wave. The wave
// message carries no pick lines, so the task gets a placeholder instruction
// that downstream systems resolve when the picker scans the first location.
func pickTaskCommand(payload *WaveReleasedPayload, orderID string) (application.CreateTaskCommand, error) {
	pickContext := domain.PickContext{
		WaveID:   payload.WaveID,
		OrderID:  orderID,
		Strategy: domain.PickStrategyDiscrete,
		Instructions: []domain.PickInstruction{
			{
				SKU:      "SKU-PLACEHOLDER",
				Quantity: 1,
				Location: domain.NewLocation(payload.AssignedZone, "01", "01", "01"),
				LPN:      "LPN-" + orderID,
			},
		},
		TotalQuantity: 1,
	}

	contextJSON, err := json.Marshal(&pickContext)
	if err != nil {
		return application.CreateTaskCommand{}, fmt.Errorf("failed to encode pick context: %w", err)
	}

	return application.CreateTaskCommand{
		Type:                     string(domain.TaskTypePick),
		Priority:                 payload.Priority,
		WarehouseID:              payload.WarehouseID,
		Zone:                     payload.AssignedZone,
		Context:                  contextJSON,
		ReferenceID:              orderID,
		EstimatedDurationMinutes: 10,
	}, nil
}

func (c *WaveConsumer) recordConsume(eventType string, success bool) {
	if c.metrics != nil {
		c.metrics.RecordKafkaConsume(kafka.Topics.WaveEvents, eventType, success)
	}
}
