package domain

// TaskType represents the kind of warehouse work a task carries
type TaskType string

const (
	TaskTypePick      TaskType = "PICK"
	TaskTypePack      TaskType = "PACK"
	TaskTypePutaway   TaskType = "PUTAWAY"
	TaskTypeReplenish TaskType = "REPLENISH"
	TaskTypeCount     TaskType = "COUNT"
	TaskTypeMove      TaskType = "MOVE"
	TaskTypeShip      TaskType = "SHIP"
)

// AllTaskTypes lists every supported task type
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskTypePick,
		TaskTypePack,
		TaskTypePutaway,
		TaskTypeReplenish,
		TaskTypeCount,
		TaskTypeMove,
		TaskTypeShip,
	}
}

// IsValid reports whether the task type is one of the supported types
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypePick, TaskTypePack, TaskTypePutaway, TaskTypeReplenish,
		TaskTypeCount, TaskTypeMove, TaskTypeShip:
		return true
	}
	return false
}

// RequiresLocation reports whether tasks of this type operate at a storage location
func (t TaskType) RequiresLocation() bool {
	switch t {
	case TaskTypePick, TaskTypePutaway, TaskTypeReplenish, TaskTypeCount:
		return true
	}
	return false
}

// IsOrderRelated reports whether tasks of this type trace back to a customer order
func (t TaskType) IsOrderRelated() bool {
	switch t {
	case TaskTypePick, TaskTypePack, TaskTypeShip:
		return true
	}
	return false
}

// ComplexityMultiplier returns the relative effort weight for the task type
func (t TaskType) ComplexityMultiplier() float64 {
	switch t {
	case TaskTypePick:
		return 1.0
	case TaskTypePack:
		return 1.2
	case TaskTypePutaway:
		return 0.8
	case TaskTypeReplenish:
		return 1.5
	case TaskTypeCount:
		return 1.0
	case TaskTypeMove:
		return 0.5
	case TaskTypeShip:
		return 1.3
	default:
		return 1.0
	}
}

// TaskStatus represents the lifecycle state of a work task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusQueued     TaskStatus = "QUEUED"
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusAccepted   TaskStatus = "ACCEPTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// ValidTransitions returns the set of states reachable from this status
func (s TaskStatus) ValidTransitions() []TaskStatus {
	switch s {
	case TaskStatusPending:
		return []TaskStatus{TaskStatusQueued, TaskStatusCancelled}
	case TaskStatusQueued:
		return []TaskStatus{TaskStatusAssigned, TaskStatusCancelled}
	case TaskStatusAssigned:
		return []TaskStatus{TaskStatusAccepted, TaskStatusQueued, TaskStatusCancelled}
	case TaskStatusAccepted:
		return []TaskStatus{TaskStatusInProgress, TaskStatusCancelled}
	case TaskStatusInProgress:
		return []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled}
	default:
		return nil
	}
}

// CanTransitionTo reports whether a transition from this status to target is allowed
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, t := range s.ValidTransitions() {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is an end state
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a worker currently holds the task
func (s TaskStatus) IsActive() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusAccepted, TaskStatusInProgress:
		return true
	}
	return false
}

// Priority represents task urgency. Lower values are more urgent.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityUrgent   Priority = "URGENT"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
	PriorityLow      Priority = "LOW"
)

// Value returns the numeric urgency rank for queue ordering
func (p Priority) Value() int {
	switch p {
	case PriorityCritical, PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 4
	default:
		return 3
	}
}

// IsExpedited reports whether the priority warrants expedited handling
func (p Priority) IsExpedited() bool {
	switch p {
	case PriorityCritical, PriorityUrgent, PriorityHigh:
		return true
	}
	return false
}

// PriorityFromString parses a priority label; unknown labels default to NORMAL
func PriorityFromString(s string) Priority {
	switch Priority(s) {
	case PriorityCritical:
		return PriorityCritical
	case PriorityUrgent:
		return PriorityUrgent
	case PriorityHigh:
		return PriorityHigh
	case PriorityNormal:
		return PriorityNormal
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNormal
	}
}
