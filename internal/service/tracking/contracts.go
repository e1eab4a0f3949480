package tracking

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

type sampleStore interface {
	Put(ctx context.Context, s domain.LocationSample) error
	Get(ctx context.Context, courierID string) (*domain.LocationSample, error)
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type orderReader interface {
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
}

type streamer interface {
	CourierLocation(ctx context.Context, s domain.LocationSample, active []domain.Order)
}

type counter interface {
	Inc()
}
