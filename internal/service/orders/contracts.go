//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/service/lifecycle"
)

// OrderRepository is the storage surface used to create and read orders.
type OrderRepository interface {
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
}

// BusinessDirectory resolves the business an order is placed with.
type BusinessDirectory interface {
	Get(ctx context.Context, id string) (*domain.Business, error)
}

// Publisher receives newly created orders.
type Publisher interface {
	OrderCreated(ctx context.Context, o domain.Order)
}

// Creator is the subset of Service used by the intake Processor.
type Creator interface {
	Create(ctx context.Context, actor domain.Actor, in NewOrder) (*domain.Order, error)
}

// Transitioner is the subset of the lifecycle machine used for upstream cancellations.
type Transitioner interface {
	RequestTransition(ctx context.Context, req lifecycle.Request) (*domain.Order, error)
}
