package orders

import (
	"time"
)

// Intake event types.
const (
	EventPlaced    = "order.placed"
	EventCancelled = "order.cancelled"
)

// IntakeEvent is a single order event from the upstream ordering platform.
type IntakeEvent struct {
	EventID    string
	Type       string
	OrderID    string
	FromStatus string
	Order      NewOrder
	OccurredAt time.Time
}
