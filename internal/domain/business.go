package domain

import "github.com/shopspring/decimal"

// Business is a merchant that prepares orders. Read-only for the dispatch core.
type Business struct {
	ID       string
	Name     string
	Lat      float64
	Lng      float64
	Active   bool
	Approved bool
}

// Dispatchable reports whether couriers may be sent to the business.
func (b *Business) Dispatchable() bool {
	return b.Active && b.Approved
}

// NearbyBusiness is a business annotated with distance from a query point.
type NearbyBusiness struct {
	Business       Business
	DistanceMeters float64
	ClaimableCount int
	HasClaimable   bool
}

// AvailableOrder is the courier-facing projection of a claimable order.
type AvailableOrder struct {
	OrderID      string
	Code         string
	CustomerName string
	Address      DeliveryAddress
	ItemCount    int
	Total        decimal.Decimal
	DeliveryFee  decimal.Decimal
	Notes        string
}
