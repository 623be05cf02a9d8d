package application

import (
	"time"

	"github.com/wms-platform/task-execution-service/internal/domain"
)

// TaskResponse is the API representation of a work task
type TaskResponse struct {
	TaskID                   string                 `json:"taskId"`
	Type                     domain.TaskType        `json:"type"`
	Status                   domain.TaskStatus      `json:"status"`
	Priority                 domain.Priority        `json:"priority"`
	WarehouseID              string                 `json:"warehouseId"`
	Zone                     string                 `json:"zone,omitempty"`
	Location                 string                 `json:"location,omitempty"`
	ReferenceID              string                 `json:"referenceId,omitempty"`
	Metadata                 map[string]interface{} `json:"metadata,omitempty"`
	QueuedAt                 *time.Time             `json:"queuedAt,omitempty"`
	AssignedTo               string                 `json:"assignedTo,omitempty"`
	AssignedAt               *time.Time             `json:"assignedAt,omitempty"`
	AcceptedAt               *time.Time             `json:"acceptedAt,omitempty"`
	StartedAt                *time.Time             `json:"startedAt,omitempty"`
	CompletedAt              *time.Time             `json:"completedAt,omitempty"`
	Deadline                 *time.Time             `json:"deadline,omitempty"`
	EstimatedDurationMinutes float64                `json:"estimatedDurationMinutes,omitempty"`
	ActualDurationMinutes    float64                `json:"actualDurationMinutes,omitempty"`
	FailureReason            string                 `json:"failureReason,omitempty"`
	CancellationReason       string                 `json:"cancellationReason,omitempty"`
	CreatedAt                time.Time              `json:"createdAt"`
	UpdatedAt                time.Time              `json:"updatedAt"`
	Version                  int64                  `json:"version"`
}

// ToTaskResponse maps a work task aggregate to its API representation
func ToTaskResponse(task *domain.WorkTask) TaskResponse {
	resp := TaskResponse{
		TaskID:                   task.TaskID,
		Type:                     task.Type,
		Status:                   task.Status,
		Priority:                 task.Priority,
		WarehouseID:              task.WarehouseID,
		Zone:                     task.Zone,
		ReferenceID:              task.ReferenceID,
		Metadata:                 task.Metadata,
		QueuedAt:                 task.QueuedAt,
		AssignedTo:               task.AssignedTo,
		AssignedAt:               task.AssignedAt,
		AcceptedAt:               task.AcceptedAt,
		StartedAt:                task.StartedAt,
		CompletedAt:              task.CompletedAt,
		Deadline:                 task.Deadline,
		EstimatedDurationMinutes: task.EstimatedDuration.Minutes(),
		ActualDurationMinutes:    task.ActualDuration.Minutes(),
		FailureReason:            task.FailureReason,
		CancellationReason:       task.CancellationReason,
		CreatedAt:                task.CreatedAt,
		UpdatedAt:                task.UpdatedAt,
		Version:                  task.Version,
	}
	if task.Location != nil && !task.Location.IsZero() {
		resp.Location = task.Location.Code()
	}
	return resp
}

// ToTaskResponses maps a slice of tasks, never returning nil
func ToTaskResponses(tasks []*domain.WorkTask) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, ToTaskResponse(task))
	}
	return responses
}
