package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"delivery-dispatch/internal/domain"
)

type itemDTO struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type addressDTO struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type createOrderRequest struct {
	BusinessID    string          `json:"business_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	Items         []itemDTO       `json:"items"`
	Address       addressDTO      `json:"address"`
	PaymentMethod string          `json:"payment_method"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Notes         string          `json:"notes,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
}

type orderDTO struct {
	ID                string             `json:"id"`
	Code              string             `json:"code"`
	BusinessID        string             `json:"business_id"`
	CustomerID        string             `json:"customer_id"`
	CustomerName      string             `json:"customer_name"`
	Items             []itemDTO          `json:"items"`
	Address           addressDTO         `json:"address"`
	PaymentMethod     string             `json:"payment_method"`
	Subtotal          string             `json:"subtotal"`
	DeliveryFee       string             `json:"delivery_fee"`
	Discount          string             `json:"discount"`
	Total             string             `json:"total"`
	CouponCode        string             `json:"coupon_code,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	Status            domain.OrderStatus `json:"status"`
	AssignedCourierID string             `json:"assigned_courier_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	StatusChangedAt   time.Time          `json:"status_changed_at"`
}

type transitionRequest struct {
	FromStatus domain.OrderStatus `json:"from_status"`
	ToStatus   domain.OrderStatus `json:"to_status"`
}

type nearbyBusinessDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DistanceMeters float64 `json:"distance_meters"`
	ClaimableCount int     `json:"claimable_count"`
	HasClaimable   bool    `json:"has_claimable"`
}

type availableOrderDTO struct {
	OrderID      string     `json:"order_id"`
	Code         string     `json:"code"`
	CustomerName string     `json:"customer_name"`
	Address      addressDTO `json:"address"`
	ItemCount    int        `json:"item_count"`
	Total        string     `json:"total"`
	DeliveryFee  string     `json:"delivery_fee"`
	Notes        string     `json:"notes,omitempty"`
}

type locationRequest struct {
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Heading         float64   `json:"heading"`
	Speed           float64   `json:"speed"`
	Accuracy        float64   `json:"accuracy"`
	ClientTimestamp time.Time `json:"client_timestamp"`
}

type locationDTO struct {
	CourierID       string    `json:"courier_id"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Heading         float64   `json:"heading"`
	Speed           float64   `json:"speed"`
	Accuracy        float64   `json:"accuracy"`
	ClientTimestamp time.Time `json:"client_timestamp"`
	ReceivedAt      time.Time `json:"received_at"`
}
