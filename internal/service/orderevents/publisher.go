// Package orderevents turns committed order changes into bus messages addressed to the
// parties entitled to see them.
package orderevents

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/logx"
)

// Message types emitted on the bus.
const (
	TypeOrderCreated     = "order.created"
	TypeStatusChanged    = "order.status_changed"
	TypeOrderClaimable   = "order.claimable"
	TypeOrderUnavailable = "order.unavailable"
	TypeCourierLocation  = "courier.location"
)

type bus interface {
	Publish(msg eventbus.Message, topics ...string) int
}

// Publisher routes order events to business, courier, customer, admin and courier-pool topics.
type Publisher struct {
	bus    bus
	logger logx.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(b bus, logger logx.Logger) *Publisher {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Publisher{bus: b, logger: logger}
}

// OrderCreated announces a new order to its business, customer and admins.
func (p *Publisher) OrderCreated(_ context.Context, o domain.Order) {
	payload := NewOrderPayload(o)
	p.publish(eventbus.Message{Type: TypeOrderCreated, Key: o.ID, Payload: payload, At: o.CreatedAt},
		eventbus.BusinessTopic(o.BusinessID), eventbus.CustomerTopic(o.CustomerID), eventbus.AdminTopic)

	if o.Claimable() {
		p.publish(eventbus.Message{Type: TypeOrderClaimable, Key: o.ID, Payload: payload, At: o.CreatedAt},
			eventbus.CourierPoolTopic)
	}
}

// StatusChanged announces a committed transition. The previous courier is notified when the
// order left them, and the courier pool learns when an order becomes or stops being claimable.
func (p *Publisher) StatusChanged(_ context.Context, ch domain.StatusChange) {
	o := ch.Order
	payload := StatusPayload{
		Order:             NewOrderPayload(o),
		From:              string(ch.From),
		To:                string(ch.To),
		PreviousCourierID: ch.PreviousCourierID,
		ActorRole:         string(ch.Actor.Role),
		ActorID:           ch.Actor.ID,
		ChangedAt:         ch.ChangedAt,
	}

	topics := []string{
		eventbus.BusinessTopic(o.BusinessID),
		eventbus.CustomerTopic(o.CustomerID),
		eventbus.AdminTopic,
	}
	if o.AssignedCourierID != "" {
		topics = append(topics, eventbus.CourierTopic(o.AssignedCourierID))
	}
	if ch.PreviousCourierID != "" && ch.PreviousCourierID != o.AssignedCourierID {
		topics = append(topics, eventbus.CourierTopic(ch.PreviousCourierID))
	}
	p.publish(eventbus.Message{Type: TypeStatusChanged, Key: o.ID, Payload: payload, At: ch.ChangedAt}, topics...)

	switch {
	case ch.To == domain.StatusCourierPending:
		p.publish(eventbus.Message{Type: TypeOrderClaimable, Key: o.ID, Payload: payload.Order, At: ch.ChangedAt},
			eventbus.CourierPoolTopic)
	case ch.From == domain.StatusCourierPending:
		p.publish(eventbus.Message{Type: TypeOrderUnavailable, Key: o.ID, Payload: payload.Order, At: ch.ChangedAt},
			eventbus.CourierPoolTopic)
	}
}

// CourierLocation streams a courier position to the customers and businesses of the courier's
// active orders, and to admins.
func (p *Publisher) CourierLocation(_ context.Context, s domain.LocationSample, active []domain.Order) {
	payload := LocationPayload{
		CourierID:  s.CourierID,
		Lat:        s.Lat,
		Lng:        s.Lng,
		Heading:    s.Heading,
		Speed:      s.Speed,
		Accuracy:   s.Accuracy,
		ReceivedAt: s.ReceivedAt,
	}
	topics := []string{eventbus.AdminTopic}
	for _, o := range active {
		payload.OrderIDs = append(payload.OrderIDs, o.ID)
		topics = append(topics, eventbus.CustomerTopic(o.CustomerID), eventbus.BusinessTopic(o.BusinessID))
	}
	p.publish(eventbus.Message{Type: TypeCourierLocation, Key: s.CourierID, Payload: payload, At: s.ReceivedAt}, topics...)
}

func (p *Publisher) publish(msg eventbus.Message, topics ...string) {
	n := p.bus.Publish(msg, topics...)
	p.logger.Debug("event published",
		logx.String("type", msg.Type),
		logx.String("key", msg.Key),
		logx.Int("subscribers", n),
	)
}

// OrderPayload is the wire view of an order inside events.
type OrderPayload struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	BusinessID        string    `json:"business_id"`
	CustomerID        string    `json:"customer_id"`
	Status            string    `json:"status"`
	AssignedCourierID string    `json:"assigned_courier_id,omitempty"`
	ItemCount         int       `json:"item_count"`
	Total             string    `json:"total"`
	DeliveryFee       string    `json:"delivery_fee"`
	StatusChangedAt   time.Time `json:"status_changed_at"`
}

// NewOrderPayload projects an order for event consumers.
func NewOrderPayload(o domain.Order) OrderPayload {
	return OrderPayload{
		ID:                o.ID,
		Code:              o.Code,
		BusinessID:        o.BusinessID,
		CustomerID:        o.CustomerID,
		Status:            string(o.Status),
		AssignedCourierID: o.AssignedCourierID,
		ItemCount:         o.ItemCount(),
		Total:             o.Total.StringFixed(2),
		DeliveryFee:       o.DeliveryFee.StringFixed(2),
		StatusChangedAt:   o.StatusChangedAt,
	}
}

// StatusPayload describes a transition.
type StatusPayload struct {
	Order             OrderPayload `json:"order"`
	From              string       `json:"from"`
	To                string       `json:"to"`
	PreviousCourierID string       `json:"previous_courier_id,omitempty"`
	ActorRole         string       `json:"actor_role"`
	ActorID           string       `json:"actor_id,omitempty"`
	ChangedAt         time.Time    `json:"changed_at"`
}

// LocationPayload is a courier position update.
type LocationPayload struct {
	CourierID  string    `json:"courier_id"`
	OrderIDs   []string  `json:"order_ids,omitempty"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Heading    float64   `json:"heading"`
	Speed      float64   `json:"speed"`
	Accuracy   float64   `json:"accuracy"`
	ReceivedAt time.Time `json:"received_at"`
}
