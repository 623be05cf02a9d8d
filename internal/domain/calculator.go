package domain

import (
	"strings"
	"time"
)

// Scoring weights, in percent. SLA pressure dominates, then carrier cutoff,
// customer tier, zone and age.
const (
	weightSLA    = 35
	weightCutoff = 30
	weightTier   = 20
	weightZone   = 10
	weightAge    = 5

	maxPriorityScore = 1000
)

// SystemLoadMetrics is a snapshot of warehouse load used for adjustment
// recommendations
type SystemLoadMetrics struct {
	QueueDepth             int
	AvailableOperators     int
	AverageTaskTimeMinutes float64
}

// PriorityAdjustment is a recommendation to re-prioritize a task
type PriorityAdjustment struct {
	TaskID                string `json:"taskId"`
	CurrentScore          int    `json:"currentScore"`
	CalculatedScore       int    `json:"calculatedScore"`
	SystemBaseline        int    `json:"systemBaseline"`
	AdjustmentRecommended bool   `json:"adjustmentRecommended"`
	Reason                string `json:"reason,omitempty"`
}

// DynamicFactors are runtime conditions that scale a calculated score
type DynamicFactors struct {
	OperatorInSameZone bool
	PartOfBatch        bool
	WaveHeld           bool // the task's wave has not been released yet
	ResolvingException bool
	SurgeLevel         int
}

// TaskPriorityCalculator computes execution priority scores on a 0-1000 scale.
// Higher scores are more urgent.
type TaskPriorityCalculator struct {
	now func() time.Time
}

// NewTaskPriorityCalculator creates a calculator using the wall clock
func NewTaskPriorityCalculator() *TaskPriorityCalculator {
	return &TaskPriorityCalculator{now: time.Now}
}

// NewTaskPriorityCalculatorWithClock creates a calculator with a custom clock
func NewTaskPriorityCalculatorWithClock(clock func() time.Time) *TaskPriorityCalculator {
	return &TaskPriorityCalculator{now: clock}
}

// StaticScore returns the fixed score for a priority label
func (c *TaskPriorityCalculator) StaticScore(p Priority) int {
	switch p {
	case PriorityCritical:
		return 900
	case PriorityUrgent:
		return 750
	case PriorityHigh:
		return 600
	case PriorityLow:
		return 300
	default:
		return 450
	}
}

// Calculate computes the weighted priority score for a task
func (c *TaskPriorityCalculator) Calculate(task *WorkTask) int {
	score := 0
	score += c.slaSubscore(task) * weightSLA / 100
	score += c.cutoffSubscore(task) * weightCutoff / 100
	score += c.tierSubscore(task) * weightTier / 100
	score += zoneSubscore(task.Zone) * weightZone / 100
	score += c.ageSubscore(task) * weightAge / 100

	score = int(float64(score) * taskTypeFactor(task.Type))

	if isExpress(task) {
		score = int(float64(score) * 1.5)
	}

	score *= 5

	return clampScore(score)
}

// CalculateWithFloor computes the weighted score but never drops below the
// static score for the task's priority label
func (c *TaskPriorityCalculator) CalculateWithFloor(task *WorkTask) int {
	calculated := c.Calculate(task)
	if static := c.StaticScore(task.Priority); static > calculated {
		return static
	}
	return calculated
}

// ApplyDynamicFactors scales a score by runtime conditions
func (c *TaskPriorityCalculator) ApplyDynamicFactors(score int, factors DynamicFactors) int {
	adjusted := float64(score)

	if factors.OperatorInSameZone {
		adjusted *= 1.15
	}
	if factors.PartOfBatch {
		adjusted *= 1.1
	}
	if factors.WaveHeld {
		adjusted *= 0.5
	}
	if factors.ResolvingException {
		adjusted *= 1.3
	}

	surge := factors.SurgeLevel
	if surge > 3 {
		surge = 3
	}
	if surge > 0 {
		adjusted *= 1 + float64(surge)*0.05
	}

	result := int(adjusted)
	if result > maxPriorityScore {
		result = maxPriorityScore
	}
	return result
}

// RecommendAdjustment compares the calculated score against the static score
// and the current system baseline, flagging tasks whose effective urgency has
// drifted from their label
func (c *TaskPriorityCalculator) RecommendAdjustment(task *WorkTask, load SystemLoadMetrics) PriorityAdjustment {
	calculated := c.Calculate(task)
	static := c.StaticScore(task.Priority)
	baseline := c.systemBaseline(load)

	drift := calculated - static
	if drift < 0 {
		drift = -drift
	}

	adjustment := PriorityAdjustment{
		TaskID:                task.TaskID,
		CurrentScore:          static,
		CalculatedScore:       calculated,
		SystemBaseline:        baseline,
		AdjustmentRecommended: drift > 50,
	}

	if adjustment.AdjustmentRecommended {
		adjustment.Reason = c.adjustmentReason(task, load, calculated, baseline)
	}

	return adjustment
}

func (c *TaskPriorityCalculator) systemBaseline(load SystemLoadMetrics) int {
	queueDepth := load.QueueDepth
	if queueDepth > 20 {
		queueDepth = 20
	}

	operators := load.AvailableOperators
	if operators > 10 {
		operators = 10
	}

	taskTimeTerm := int(load.AverageTaskTimeMinutes * 2)
	if taskTimeTerm > 100 {
		taskTimeTerm = 100
	}

	baseline := 500 + queueDepth*5 - operators*10 + taskTimeTerm
	if baseline < 200 {
		baseline = 200
	}
	if baseline > 900 {
		baseline = 900
	}
	return baseline
}

func (c *TaskPriorityCalculator) adjustmentReason(task *WorkTask, load SystemLoadMetrics, calculated, baseline int) string {
	var reasons []string

	if c.slaSubscore(task) >= 90 {
		reasons = append(reasons, "Approaching SLA deadline.")
	}
	if c.cutoffSubscore(task) >= 90 {
		reasons = append(reasons, "Carrier cutoff imminent.")
	}
	if isExpress(task) {
		reasons = append(reasons, "Express handling required.")
	}
	tier := customerTier(task)
	if tier == "PLATINUM" || tier == "GOLD" {
		reasons = append(reasons, "High value customer.")
	}
	if load.QueueDepth > 10 {
		reasons = append(reasons, "High queue depth.")
	}
	if load.AvailableOperators < 2 {
		reasons = append(reasons, "Operator shortage.")
	}
	if calculated > baseline {
		reasons = append(reasons, "Calculated priority above system baseline.")
	}

	return strings.Join(reasons, " ")
}

func (c *TaskPriorityCalculator) slaSubscore(task *WorkTask) int {
	if task.Deadline == nil {
		return 50
	}

	hours := task.Deadline.Sub(c.now()).Hours()
	switch {
	case hours < 0:
		return 100
	case hours < 1:
		return 95
	case hours < 2:
		return 90
	case hours < 4:
		return 80
	case hours < 8:
		return 70
	case hours < 24:
		return 60
	case hours < 48:
		return 40
	default:
		return 20
	}
}

func (c *TaskPriorityCalculator) cutoffSubscore(task *WorkTask) int {
	raw, ok := task.Metadata["carrierCutoffTime"]
	if !ok {
		return 30
	}
	cutoffStr, ok := raw.(string)
	if !ok {
		return 30
	}
	cutoff, err := time.Parse(time.RFC3339, cutoffStr)
	if err != nil {
		return 30
	}

	minutes := cutoff.Sub(c.now()).Minutes()
	switch {
	case minutes < 0:
		return 100
	case minutes < 30:
		return 95
	case minutes < 60:
		return 90
	case minutes < 120:
		return 80
	case minutes < 240:
		return 70
	case minutes < 480:
		return 50
	default:
		return 20
	}
}

func (c *TaskPriorityCalculator) tierSubscore(task *WorkTask) int {
	tier := customerTier(task)
	if tier == "" {
		return 50
	}

	switch tier {
	case "PLATINUM":
		return 100
	case "GOLD":
		return 85
	case "SILVER":
		return 70
	case "BRONZE":
		return 55
	case "STANDARD":
		return 40
	default:
		return int(50 * tierMultiplier(tier))
	}
}

// customerTier resolves the customer tier from task metadata. Expedited tasks
// without an explicit tier are treated as platinum.
func customerTier(task *WorkTask) string {
	if raw, ok := task.Metadata["customerTier"]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return strings.ToUpper(s)
		}
	}
	if task.Priority.IsExpedited() {
		return "PLATINUM"
	}
	return ""
}

func tierMultiplier(tier string) float64 {
	switch tier {
	case "PLATINUM":
		return 2.0
	case "GOLD":
		return 1.5
	case "SILVER":
		return 1.2
	case "BRONZE":
		return 1.0
	case "STANDARD":
		return 0.8
	default:
		return 1.0
	}
}

func zoneSubscore(zone string) int {
	if zone == "" {
		return 50
	}

	upper := strings.ToUpper(zone)
	switch {
	case strings.HasPrefix(upper, "PICK-A"), strings.HasPrefix(upper, "ZONE-A"):
		return 90
	case strings.HasPrefix(upper, "PICK-B"), strings.HasPrefix(upper, "ZONE-B"):
		return 70
	case strings.HasPrefix(upper, "PICK-C"), strings.HasPrefix(upper, "ZONE-C"):
		return 50
	default:
		return 30
	}
}

func (c *TaskPriorityCalculator) ageSubscore(task *WorkTask) int {
	if task.CreatedAt.IsZero() {
		return 0
	}

	hours := c.now().Sub(task.CreatedAt).Hours()
	switch {
	case hours > 24:
		return 100
	case hours > 12:
		return 80
	case hours > 6:
		return 60
	case hours > 2:
		return 40
	default:
		return 20
	}
}

func taskTypeFactor(t TaskType) float64 {
	switch t {
	case TaskTypeCount:
		return 0.6
	case TaskTypeMove:
		return 0.7
	case TaskTypeReplenish:
		return 0.8
	case TaskTypePack:
		return 0.9
	case TaskTypePick:
		return 1.0
	case TaskTypePutaway:
		return 1.1
	case TaskTypeShip:
		return 1.2
	default:
		return 1.0
	}
}

// isExpress checks the express metadata flags, falling back to the priority label
func isExpress(task *WorkTask) bool {
	for _, key := range []string{"express", "isExpress"} {
		if raw, ok := task.Metadata[key]; ok {
			switch v := raw.(type) {
			case bool:
				return v
			case string:
				return strings.EqualFold(v, "true")
			}
		}
	}
	return task.Priority.IsExpedited()
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxPriorityScore {
		return maxPriorityScore
	}
	return score
}
