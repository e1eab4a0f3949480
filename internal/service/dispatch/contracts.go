package dispatch

import (
	"context"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
)

type businessDirectory interface {
	InBox(ctx context.Context, box geo.Box) ([]domain.Business, error)
	Get(ctx context.Context, id string) (*domain.Business, error)
}

type orderReader interface {
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	CountClaimable(ctx context.Context, businessIDs []string) (map[string]int, error)
}
