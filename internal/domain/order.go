package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for the order.
type PaymentMethod string

// List of supported payment methods.
const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

// Valid checks if the PaymentMethod is supported.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard || p == PaymentOnline
}

// OrderItem is a product line captured at order time. Price and quantity never change afterwards.
type OrderItem struct {
	ProductID string
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns UnitPrice × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DeliveryAddress is a free-text address with coordinates.
type DeliveryAddress struct {
	Text string
	Lat  float64
	Lng  float64
}

// Order is a customer order moving through the delivery lifecycle.
// AssignedCourierID is empty when no courier holds the order.
type Order struct {
	ID                string
	Code              string
	BusinessID        string
	CustomerID        string
	CustomerName      string
	Items             []OrderItem
	Address           DeliveryAddress
	PaymentMethod     PaymentMethod
	Subtotal          decimal.Decimal
	DeliveryFee       decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	CouponCode        string
	Notes             string
	Status            OrderStatus
	AssignedCourierID string
	CreatedAt         time.Time
	StatusChangedAt   time.Time
}

// ItemCount returns the total number of units across all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Claimable reports whether a courier may claim the order.
func (o *Order) Claimable() bool {
	return o.Status == StatusCourierPending && o.AssignedCourierID == ""
}

// AssignmentConsistent checks that a courier is present exactly when the status requires one.
func (o *Order) AssignmentConsistent() bool {
	return o.Status.HoldsCourier() == (o.AssignedCourierID != "")
}

// TotalsConsistent checks subtotal + delivery fee − discount = total.
func (o *Order) TotalsConsistent() bool {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	if !sum.Equal(o.Subtotal) {
		return false
	}
	return o.Subtotal.Add(o.DeliveryFee).Sub(o.Discount).Equal(o.Total)
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp
}

// StatusCAS is a conditional update of an order's status and assignment.
// It applies only if the stored status equals ExpectedStatus and the stored courier equals
// ExpectedCourierID (empty meaning none).
type StatusCAS struct {
	OrderID           string
	ExpectedStatus    OrderStatus
	ExpectedCourierID string
	NewStatus         OrderStatus
	NewCourierID      string
	ChangedAt         time.Time
}

// OrderFilter narrows order listings. Zero fields are ignored.
type OrderFilter struct {
	BusinessID string
	CustomerID string
	CourierID  string
	Statuses   []OrderStatus
	Limit      int
}

// Matches reports whether the order satisfies the filter (Limit is not considered).
func (f OrderFilter) Matches(o *Order) bool {
	if f.BusinessID != "" && o.BusinessID != f.BusinessID {
		return false
	}
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.CourierID != "" && o.AssignedCourierID != f.CourierID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
