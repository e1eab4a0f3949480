//go:generate mockgen -source=contracts.go -destination=lifecycle_mocks_test.go -package=lifecycle_test

package lifecycle

import (
	"context"

	"delivery-dispatch/internal/domain"
)

// OrderStore is the storage surface needed to move orders between statuses.
type OrderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	CompareAndSetStatus(ctx context.Context, cas domain.StatusCAS) (*domain.Order, error)
}

// Claimer performs the courier claim edge.
type Claimer interface {
	ClaimOrder(ctx context.Context, orderID, courierID string) (*domain.Order, error)
}

// Publisher receives committed transitions.
type Publisher interface {
	StatusChanged(ctx context.Context, ch domain.StatusChange)
}
