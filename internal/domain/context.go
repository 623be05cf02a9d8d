package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ValidationError reports an invalid or missing field in a task context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func requiredField(field string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("invalid %s: %s", field, reason)}
}

// TaskContext carries the type-specific payload of a work task. Exactly one
// concrete context exists per task type.
type TaskContext interface {
	TaskType() TaskType
	Validate() error
	Metadata() map[string]interface{}
	ComplexityScore() float64
}

// PickStrategy determines how picks are batched
type PickStrategy string

const (
	PickStrategyDiscrete PickStrategy = "DISCRETE"
	PickStrategyBatch    PickStrategy = "BATCH"
	PickStrategyZone     PickStrategy = "ZONE"
	PickStrategyWave     PickStrategy = "WAVE"
	PickStrategyCluster  PickStrategy = "CLUSTER"
)

func (s PickStrategy) isValid() bool {
	switch s {
	case PickStrategyDiscrete, PickStrategyBatch, PickStrategyZone, PickStrategyWave, PickStrategyCluster:
		return true
	}
	return false
}

// PickInstruction is a single line to pick
type PickInstruction struct {
	SKU      string   `bson:"sku" json:"sku"`
	Quantity int      `bson:"quantity" json:"quantity"`
	Location Location `bson:"location" json:"location"`
	LPN      string   `bson:"lpn" json:"lpn"`
}

// PickContext is the payload for PICK tasks
type PickContext struct {
	WaveID        string            `bson:"waveId" json:"waveId"`
	OrderID       string            `bson:"orderId" json:"orderId"`
	Strategy      PickStrategy      `bson:"strategy" json:"strategy"`
	Instructions  []PickInstruction `bson:"instructions" json:"instructions"`
	IsMultiOrder  bool              `bson:"isMultiOrder" json:"isMultiOrder"`
	TotalQuantity int               `bson:"totalQuantity" json:"totalQuantity"`
}

func (c *PickContext) TaskType() TaskType { return TaskTypePick }

func (c *PickContext) Validate() error {
	if c.WaveID == "" {
		return requiredField("waveId")
	}
	if c.OrderID == "" {
		return requiredField("orderId")
	}
	if !c.Strategy.isValid() {
		return invalidField("strategy", string(c.Strategy))
	}
	if len(c.Instructions) == 0 {
		return requiredField("instructions")
	}
	for i, instr := range c.Instructions {
		if instr.SKU == "" {
			return requiredField(fmt.Sprintf("instructions[%d].sku", i))
		}
		if instr.Quantity <= 0 {
			return invalidField(fmt.Sprintf("instructions[%d].quantity", i), "must be positive")
		}
		if instr.Location.IsZero() {
			return requiredField(fmt.Sprintf("instructions[%d].location", i))
		}
	}
	return nil
}

func (c *PickContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"waveId":           c.WaveID,
		"orderId":          c.OrderID,
		"strategy":         string(c.Strategy),
		"instructionCount": len(c.Instructions),
		"totalQuantity":    c.TotalQuantity,
		"isMultiOrder":     c.IsMultiOrder,
	}
}

func (c *PickContext) ComplexityScore() float64 {
	score := 1.0 + 0.1*float64(len(c.Instructions)) + 0.05*float64(c.TotalQuantity)
	if c.IsMultiOrder {
		score *= 1.3
	}
	return score
}

// PackStrategy determines how orders are packed
type PackStrategy string

const (
	PackStrategySingleOrder   PackStrategy = "SINGLE_ORDER"
	PackStrategyMultiOrder    PackStrategy = "MULTI_ORDER"
	PackStrategyConsolidation PackStrategy = "CONSOLIDATION"
	PackStrategyExpress       PackStrategy = "EXPRESS"
)

func (s PackStrategy) isValid() bool {
	switch s {
	case PackStrategySingleOrder, PackStrategyMultiOrder, PackStrategyConsolidation, PackStrategyExpress:
		return true
	}
	return false
}

// PackItem is a single item to pack
type PackItem struct {
	SKU              string `bson:"sku" json:"sku"`
	Quantity         int    `bson:"quantity" json:"quantity"`
	Fragile          bool   `bson:"fragile" json:"fragile"`
	RequiresBubbleWrap bool `bson:"requiresBubbleWrap" json:"requiresBubbleWrap"`
	ContainerType    string `bson:"containerType" json:"containerType"`
}

// PackContext is the payload for PACK tasks
type PackContext struct {
	OrderID                 string       `bson:"orderId" json:"orderId"`
	ShipmentID              string       `bson:"shipmentId" json:"shipmentId"`
	Strategy                PackStrategy `bson:"strategy" json:"strategy"`
	Items                   []PackItem   `bson:"items" json:"items"`
	PackStationID           string       `bson:"packStationId" json:"packStationId"`
	RequiresGiftWrap        bool         `bson:"requiresGiftWrap" json:"requiresGiftWrap"`
	RequiresFragileHandling bool         `bson:"requiresFragileHandling" json:"requiresFragileHandling"`
}

func (c *PackContext) TaskType() TaskType { return TaskTypePack }

func (c *PackContext) Validate() error {
	if c.OrderID == "" {
		return requiredField("orderId")
	}
	if c.ShipmentID == "" {
		return requiredField("shipmentId")
	}
	if !c.Strategy.isValid() {
		return invalidField("strategy", string(c.Strategy))
	}
	if len(c.Items) == 0 {
		return requiredField("items")
	}
	for i, item := range c.Items {
		if item.SKU == "" {
			return requiredField(fmt.Sprintf("items[%d].sku", i))
		}
		if item.Quantity <= 0 {
			return invalidField(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	return nil
}

func (c *PackContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"orderId":       c.OrderID,
		"shipmentId":    c.ShipmentID,
		"strategy":      string(c.Strategy),
		"itemCount":     len(c.Items),
		"packStationId": c.PackStationID,
	}
}

func (c *PackContext) ComplexityScore() float64 {
	score := 1.0 + 0.15*float64(len(c.Items))
	if c.RequiresGiftWrap {
		score *= 1.2
	}
	if c.RequiresFragileHandling {
		score *= 1.3
	}
	return score
}

// PutawayContext is the payload for PUTAWAY tasks
type PutawayContext struct {
	ReceiptID           string   `bson:"receiptId" json:"receiptId"`
	LPN                 string   `bson:"lpn" json:"lpn"`
	SKU                 string   `bson:"sku" json:"sku"`
	Quantity            int      `bson:"quantity" json:"quantity"`
	DestinationLocation Location `bson:"destinationLocation" json:"destinationLocation"`
	StorageType         string   `bson:"storageType" json:"storageType"`
}

func (c *PutawayContext) TaskType() TaskType { return TaskTypePutaway }

func (c *PutawayContext) Validate() error {
	if c.ReceiptID == "" {
		return requiredField("receiptId")
	}
	if c.LPN == "" {
		return requiredField("lpn")
	}
	if c.SKU == "" {
		return requiredField("sku")
	}
	if c.Quantity <= 0 {
		return invalidField("quantity", "must be positive")
	}
	if c.DestinationLocation.IsZero() {
		return requiredField("destinationLocation")
	}
	return nil
}

func (c *PutawayContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"receiptId":   c.ReceiptID,
		"lpn":         c.LPN,
		"sku":         c.SKU,
		"quantity":    c.Quantity,
		"storageType": c.StorageType,
	}
}

func (c *PutawayContext) ComplexityScore() float64 { return 1.0 }

// ReplenishContext is the payload for REPLENISH tasks
type ReplenishContext struct {
	SKU                 string   `bson:"sku" json:"sku"`
	Quantity            int      `bson:"quantity" json:"quantity"`
	SourceLocation      Location `bson:"sourceLocation" json:"sourceLocation"`
	DestinationLocation Location `bson:"destinationLocation" json:"destinationLocation"`
	ReplenishmentType   string   `bson:"replenishmentType" json:"replenishmentType"`
}

func (c *ReplenishContext) TaskType() TaskType { return TaskTypeReplenish }

func (c *ReplenishContext) Validate() error {
	if c.SKU == "" {
		return requiredField("sku")
	}
	if c.Quantity <= 0 {
		return invalidField("quantity", "must be positive")
	}
	if c.SourceLocation.IsZero() {
		return requiredField("sourceLocation")
	}
	if c.DestinationLocation.IsZero() {
		return requiredField("destinationLocation")
	}
	return nil
}

func (c *ReplenishContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"sku":               c.SKU,
		"quantity":          c.Quantity,
		"replenishmentType": c.ReplenishmentType,
	}
}

func (c *ReplenishContext) ComplexityScore() float64 { return 1.0 }

// CountType determines the kind of inventory count
type CountType string

const (
	CountTypeCycle         CountType = "CYCLE_COUNT"
	CountTypeLocationAudit CountType = "LOCATION_AUDIT"
	CountTypeSKUAudit      CountType = "SKU_AUDIT"
	CountTypeBlind         CountType = "BLIND_COUNT"
)

func (t CountType) isValid() bool {
	switch t {
	case CountTypeCycle, CountTypeLocationAudit, CountTypeSKUAudit, CountTypeBlind:
		return true
	}
	return false
}

// CountContext is the payload for COUNT tasks
type CountContext struct {
	CountID          string    `bson:"countId" json:"countId"`
	CountType        CountType `bson:"countType" json:"countType"`
	Location         Location  `bson:"location" json:"location"`
	SKU              string    `bson:"sku,omitempty" json:"sku,omitempty"`
	ExpectedQuantity *int      `bson:"expectedQuantity,omitempty" json:"expectedQuantity,omitempty"`
}

func (c *CountContext) TaskType() TaskType { return TaskTypeCount }

func (c *CountContext) Validate() error {
	if c.CountID == "" {
		return requiredField("countId")
	}
	if !c.CountType.isValid() {
		return invalidField("countType", string(c.CountType))
	}
	if c.Location.IsZero() {
		return requiredField("location")
	}
	return nil
}

func (c *CountContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"countId":   c.CountID,
		"countType": string(c.CountType),
	}
}

func (c *CountContext) ComplexityScore() float64 { return 1.0 }

// MoveContext is the payload for MOVE tasks
type MoveContext struct {
	LPN                 string   `bson:"lpn" json:"lpn"`
	SourceLocation      Location `bson:"sourceLocation" json:"sourceLocation"`
	DestinationLocation Location `bson:"destinationLocation" json:"destinationLocation"`
	Reason              string   `bson:"reason" json:"reason"`
}

func (c *MoveContext) TaskType() TaskType { return TaskTypeMove }

func (c *MoveContext) Validate() error {
	if c.LPN == "" {
		return requiredField("lpn")
	}
	if c.SourceLocation.IsZero() {
		return requiredField("sourceLocation")
	}
	if c.DestinationLocation.IsZero() {
		return requiredField("destinationLocation")
	}
	return nil
}

func (c *MoveContext) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"lpn":    c.LPN,
		"reason": c.Reason,
	}
}

func (c *MoveContext) ComplexityScore() float64 { return 1.0 }

// ShipContext is the payload for SHIP tasks
type ShipContext struct {
	ShipmentID          string     `bson:"shipmentId" json:"shipmentId"`
	Carrier             string     `bson:"carrier" json:"carrier"`
	TrackingNumber      string     `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	DockDoor            string     `bson:"dockDoor,omitempty" json:"dockDoor,omitempty"`
	ScheduledPickupTime *time.Time `bson:"scheduledPickupTime,omitempty" json:"scheduledPickupTime,omitempty"`
	TotalPackages       int        `bson:"totalPackages" json:"totalPackages"`
}

func (c *ShipContext) TaskType() TaskType { return TaskTypeShip }

func (c *ShipContext) Validate() error {
	if c.ShipmentID == "" {
		return requiredField("shipmentId")
	}
	if c.Carrier == "" {
		return requiredField("carrier")
	}
	if c.TotalPackages <= 0 {
		return invalidField("totalPackages", "must be positive")
	}
	return nil
}

func (c *ShipContext) Metadata() map[string]interface{} {
	md := map[string]interface{}{
		"shipmentId":    c.ShipmentID,
		"carrier":       c.Carrier,
		"totalPackages": c.TotalPackages,
	}
	if c.ScheduledPickupTime != nil {
		md["carrierCutoffTime"] = c.ScheduledPickupTime.Format(time.RFC3339)
	}
	return md
}

func (c *ShipContext) ComplexityScore() float64 { return 1.0 }

// newContextForType returns an empty concrete context for the given task type
func newContextForType(taskType TaskType) (TaskContext, error) {
	switch taskType {
	case TaskTypePick:
		return &PickContext{}, nil
	case TaskTypePack:
		return &PackContext{}, nil
	case TaskTypePutaway:
		return &PutawayContext{}, nil
	case TaskTypeReplenish:
		return &ReplenishContext{}, nil
	case TaskTypeCount:
		return &CountContext{}, nil
	case TaskTypeMove:
		return &MoveContext{}, nil
	case TaskTypeShip:
		return &ShipContext{}, nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}

// UnmarshalContextJSON decodes a context payload for the given task type
func UnmarshalContextJSON(taskType TaskType, data []byte) (TaskContext, error) {
	ctx, err := newContextForType(taskType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("invalid %s context: %w", taskType, err)
	}
	return ctx, nil
}

// UnmarshalContextBSON decodes a stored context document for the given task type
func UnmarshalContextBSON(taskType TaskType, raw bson.Raw) (TaskContext, error) {
	ctx, err := newContextForType(taskType)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, ctx); err != nil {
		return nil, fmt.Errorf("invalid %s context document: %w", taskType, err)
	}
	return ctx, nil
}
