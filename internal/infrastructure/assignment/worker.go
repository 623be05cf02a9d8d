package assignment

import (
	"github.com/wms-platform/task-execution-service/internal/domain"
)

// Worker is a snapshot of a warehouse operator used for assignment decisions
type Worker struct {
	WorkerID          string            `json:"workerId"`
	WarehouseID       string            `json:"warehouseId"`
	CurrentZone       string            `json:"currentZone"`
	CurrentLocation   *domain.Location  `json:"currentLocation,omitempty"`
	Capabilities      []domain.TaskType `json:"capabilities"`
	Specializations   []domain.TaskType `json:"specializations,omitempty"`
	ActiveTaskCount   int               `json:"activeTaskCount"`
	PerformanceRating float64           `json:"performanceRating"` // 0.0 - 1.0
}

// CanPerform reports whether the worker is capable of the task type
func (w Worker) CanPerform(taskType domain.TaskType) bool {
	for _, c := range w.Capabilities {
		if c == taskType {
			return true
		}
	}
	return false
}

// HasSpecialization reports whether the worker specializes in the task type
func (w Worker) HasSpecialization(taskType domain.TaskType) bool {
	for _, s := range w.Specializations {
		if s == taskType {
			return true
		}
	}
	return false
}

