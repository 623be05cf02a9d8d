package events

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/pkg/cloudevents"
	"github.com/wms-platform/task-execution-service/pkg/kafka"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/metrics"
)

// KafkaEventPublisher publishes domain events as CloudEvents on the task
// events topic. Delivery is at-most-once relative to the aggregate save:
// callers treat publish failures as non-fatal.
type KafkaEventPublisher struct {
	producer *kafka.CircuitBreakerProducer
	factory  *cloudevents.EventFactory
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewKafkaEventPublisher creates a publisher for task domain events
func NewKafkaEventPublisher(producer *kafka.CircuitBreakerProducer, logger *logging.Logger, m *metrics.Metrics) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		factory:  cloudevents.NewEventFactory("task-execution-service"),
		logger:   logger.WithComponent("event-publisher"),
		metrics:  m,
	}
}

// Publish converts a domain event to a CloudEvent and sends it
func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	cloudEvent, err := p.toCloudEvent(ctx, event)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.producer.PublishEvent(ctx, kafka.Topics.TaskEvents, cloudEvent)
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(kafka.Topics.TaskEvents, cloudEvent.Type, err == nil, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", cloudEvent.Type, err)
	}

	p.logger.Event(ctx, cloudEvent.Type, map[string]any{
		"subject": cloudEvent.Subject,
		"eventId": cloudEvent.ID,
	})
	return nil
}

// PublishAll publishes events in order, stopping at the first failure
func (p *KafkaEventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *KafkaEventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) (*cloudevents.WMSCloudEvent, error) {
	switch e := event.(type) {
	case *domain.TaskCreatedEvent:
		return p.factory.CreateEventWithWarehouse(ctx, cloudevents.TaskCreated, taskSubject(e.TaskID), e, e.WarehouseID), nil
	case *domain.TaskAssignedEvent:
		return p.factory.CreateEventWithWarehouse(ctx, cloudevents.TaskAssigned, taskSubject(e.TaskID), e, e.WarehouseID), nil
	case *domain.TaskCompletedEvent:
		return p.factory.CreateEventWithWarehouse(ctx, cloudevents.TaskCompleted, taskSubject(e.TaskID), e, e.WarehouseID), nil
	case *domain.TaskFailedEvent:
		return p.factory.CreateEventWithWarehouse(ctx, cloudevents.TaskFailed, taskSubject(e.TaskID), e, e.WarehouseID), nil
	default:
		return nil, fmt.Errorf("unknown domain event type %q", event.EventType())
	}
}

func taskSubject(taskID string) string {
	return "task/" + taskID
}
