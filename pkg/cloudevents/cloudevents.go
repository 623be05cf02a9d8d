package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType constants for task-execution domain events
const (
	TaskCreated   = "wms.task.created"
	TaskAssigned  = "wms.task.assigned"
	TaskCompleted = "wms.task.completed"
	TaskFailed    = "wms.task.failed"

	// Inbound events consumed from the wave-planning service
	WaveReleased = "wms.wave.released"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WarehouseID   string `json:"wmswarehouseid,omitempty"`
	WaveNumber    string `json:"wmswavenumber,omitempty"`
}

// EventFactory creates CloudEvents for a specific source service
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	return &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateEventWithWarehouse creates an event tagged with the originating warehouse
func (f *EventFactory) CreateEventWithWarehouse(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	warehouseID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.WarehouseID = warehouseID
	return event
}
