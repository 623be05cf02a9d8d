package application

import (
	"encoding/json"
	"time"
)

// CreateTaskCommand carries the inputs for creating a work task. The context
// payload is decoded against the task type.
type CreateTaskCommand struct {
	Type                     string                 `json:"type" binding:"required"`
	Priority                 string                 `json:"priority"`
	WarehouseID              string                 `json:"warehouseId" binding:"required"`
	Zone                     string                 `json:"zone"`
	Location                 string                 `json:"location,omitempty"`
	Context                  json.RawMessage        `json:"context" binding:"required"`
	ReferenceID              string                 `json:"referenceId,omitempty"`
	EstimatedDurationMinutes int                    `json:"estimatedDurationMinutes"`
	Deadline                 *time.Time             `json:"deadline,omitempty"`
	Metadata                 map[string]interface{} `json:"metadata,omitempty"`
}

// AssignTaskCommand assigns a task to a specific worker
type AssignTaskCommand struct {
	WorkerID string `json:"workerId" binding:"required"`
}

// ReasonCommand carries the reason for reject, fail, and cancel operations
type ReasonCommand struct {
	Reason string `json:"reason"`
}
