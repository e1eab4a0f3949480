//go:generate mockgen -source=contracts.go -destination=claim_mocks_test.go -package=claim_test

package claim

import (
	"context"

	"delivery-dispatch/internal/domain"
)

// OrderStore is the storage surface needed to claim orders.
type OrderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	CompareAndSetStatus(ctx context.Context, cas domain.StatusCAS) (*domain.Order, error)
}

// Publisher receives committed claims.
type Publisher interface {
	StatusChanged(ctx context.Context, ch domain.StatusChange)
}
