package domain

import "time"

// StatusChange describes a committed order transition.
type StatusChange struct {
	Order             Order
	From              OrderStatus
	To                OrderStatus
	PreviousCourierID string
	Actor             Actor
	ChangedAt         time.Time
}
