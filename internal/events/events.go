package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeInventoryProvisioned = "inventory.provisioned"
	TypeConversionCompleted  = "conversion.completed"
	TypeConversionCancelled  = "conversion.cancelled"
)

type Event interface {
	ID() string
	Type() string
	OccurredAt() time.Time
}

type baseEvent struct {
	eventID    string
	occurredAt time.Time
}

func newBaseEvent() baseEvent {
	return baseEvent{
		eventID:    uuid.NewString(),
		occurredAt: time.Now(),
	}
}

func (e baseEvent) ID() string            { return e.eventID }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// InventoryProvisioned is published after Initialize succeeds for at least one
// location.
type InventoryProvisioned struct {
	baseEvent
	ProductID   int64
	LocationIDs []int64
	Partial     bool
}

func NewInventoryProvisioned(productID int64, locationIDs []int64, partial bool) InventoryProvisioned {
	return InventoryProvisioned{baseEvent: newBaseEvent(), ProductID: productID, LocationIDs: locationIDs, Partial: partial}
}

func (InventoryProvisioned) Type() string { return TypeInventoryProvisioned }

type ConversionCompleted struct {
	baseEvent
	RecordID           int64
	InputProductID     int64
	LocationID         int64
	ActualOutput       decimal.Decimal
	VariancePercentage *decimal.Decimal
	VarianceFlagged    bool
}

func NewConversionCompleted(recordID, inputProductID, locationID int64, actual decimal.Decimal, variance *decimal.Decimal, flagged bool) ConversionCompleted {
	return ConversionCompleted{
		baseEvent:          newBaseEvent(),
		RecordID:           recordID,
		InputProductID:     inputProductID,
		LocationID:         locationID,
		ActualOutput:       actual,
		VariancePercentage: variance,
		VarianceFlagged:    flagged,
	}
}

func (ConversionCompleted) Type() string { return TypeConversionCompleted }

type ConversionCancelled struct {
	baseEvent
	RecordID       int64
	InputProductID int64
	LocationID     int64
	Reason         string
}

func NewConversionCancelled(recordID, inputProductID, locationID int64, reason string) ConversionCancelled {
	return ConversionCancelled{baseEvent: newBaseEvent(), RecordID: recordID, InputProductID: inputProductID, LocationID: locationID, Reason: reason}
}

func (ConversionCancelled) Type() string { return TypeConversionCancelled }
