package domain

import "time"

// LocationSample is the last known position reported by a courier.
type LocationSample struct {
	CourierID       string
	Lat             float64
	Lng             float64
	Heading         float64
	Speed           float64
	Accuracy        float64
	ClientTimestamp time.Time
	ReceivedAt      time.Time
}
