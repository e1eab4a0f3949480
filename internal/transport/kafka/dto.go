package kafka

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"delivery-dispatch/internal/service/orders"
)

// ItemDTO is an order line in an intake message.
type ItemDTO struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// AddressDTO is the delivery address of an intake message.
type AddressDTO struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// EventDTO is the wire shape of an intake message.
type EventDTO struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id,omitempty"`
	FromStatus    string          `json:"from_status,omitempty"`
	BusinessID    string          `json:"business_id,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Items         []ItemDTO       `json:"items,omitempty"`
	Address       AddressDTO      `json:"address"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Notes         string          `json:"notes,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ToDomain converts EventDTO to orders.IntakeEvent
func ToDomain(dto EventDTO) orders.IntakeEvent {
	items := make([]orders.NewItem, 0, len(dto.Items))
	for _, it := range dto.Items {
		items = append(items, orders.NewItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Title:     strings.TrimSpace(it.Title),
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return orders.IntakeEvent{
		EventID:    strings.TrimSpace(dto.EventID),
		Type:       strings.TrimSpace(dto.Type),
		OrderID:    strings.TrimSpace(dto.OrderID),
		FromStatus: strings.TrimSpace(dto.FromStatus),
		OccurredAt: dto.OccurredAt,
		Order: orders.NewOrder{
			BusinessID:    strings.TrimSpace(dto.BusinessID),
			CustomerID:    strings.TrimSpace(dto.CustomerID),
			CustomerName:  strings.TrimSpace(dto.CustomerName),
			Items:         items,
			AddressText:   strings.TrimSpace(dto.Address.Text),
			Lat:           dto.Address.Lat,
			Lng:           dto.Address.Lng,
			PaymentMethod: strings.TrimSpace(dto.PaymentMethod),
			CouponCode:    strings.TrimSpace(dto.CouponCode),
			Discount:      dto.Discount,
			Notes:         strings.TrimSpace(dto.Notes),
		},
	}
}
