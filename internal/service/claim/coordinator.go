// Package claim lets couriers take claimable orders with exactly one winner per order.
package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// Conflict reasons. Both match apperr.ErrConflict.
var (
	ErrAlreadyTaken = fmt.Errorf("%w: order already taken", apperr.ErrConflict)
	ErrNotClaimable = fmt.Errorf("%w: order is not claimable", apperr.ErrConflict)
)

type outcomeCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}

// Coordinator performs claims through a single conditional update, so no lock is held between
// reading and writing an order.
type Coordinator struct {
	store            OrderStore
	publisher        Publisher
	operationTimeout time.Duration
	logger           logx.Logger
	outcomes         outcomeCounter
	now              func() time.Time
}

// NewCoordinator creates a Coordinator. outcomes may be nil.
func NewCoordinator(store OrderStore, pub Publisher, timeout time.Duration, logger logx.Logger, outcomes outcomeCounter) *Coordinator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Coordinator{
		store:            store,
		publisher:        pub,
		operationTimeout: timeout,
		logger:           logger,
		outcomes:         outcomes,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.operationTimeout)
}

// ClaimAs claims orderID for the acting courier.
func (c *Coordinator) ClaimAs(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if actor.Role != domain.RoleCourier || actor.ID == "" {
		return nil, fmt.Errorf("%w: only couriers can claim orders", apperr.ErrForbidden)
	}
	return c.ClaimOrder(ctx, orderID, actor.ID)
}

// ClaimOrder assigns a courier_pending order to courierID. Claiming an order the courier already
// holds succeeds without changes. Losing a race yields ErrAlreadyTaken; an order in any other
// state yields ErrNotClaimable. The store is never retried here.
func (c *Coordinator) ClaimOrder(ctx context.Context, orderID, courierID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	courierID = strings.TrimSpace(courierID)
	if orderID == "" || courierID == "" {
		return nil, fmt.Errorf("%w: order id and courier id are required", apperr.ErrInvalid)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	changedAt := c.now()
	won, err := c.store.CompareAndSetStatus(ctx, domain.StatusCAS{
		OrderID:        orderID,
		ExpectedStatus: domain.StatusCourierPending,
		NewStatus:      domain.StatusAssigned,
		NewCourierID:   courierID,
		ChangedAt:      changedAt,
	})
	if err != nil {
		c.observe("error")
		return nil, fmt.Errorf("claim order %s: %w", orderID, err)
	}
	if won != nil {
		c.observe("won")
		c.logger.Info("order claimed",
			logx.String("event", "order_claimed"),
			logx.OrderID(orderID),
			logx.CourierID(courierID),
		)
		c.publisher.StatusChanged(ctx, domain.StatusChange{
			Order:     *won,
			From:      domain.StatusCourierPending,
			To:        domain.StatusAssigned,
			Actor:     domain.Actor{Role: domain.RoleCourier, ID: courierID},
			ChangedAt: changedAt,
		})
		return won, nil
	}

	cur, err := c.store.Get(ctx, orderID)
	if err != nil {
		c.observe("error")
		return nil, fmt.Errorf("claim order %s: %w", orderID, err)
	}
	if cur == nil {
		c.observe("not_found")
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
	}

	switch {
	case cur.AssignedCourierID == courierID && cur.Status.Active():
		c.observe("idempotent")
		return cur, nil
	case cur.Status.Active():
		c.observe("already_taken")
		c.logger.Info("claim lost",
			logx.String("event", "claim_lost"),
			logx.OrderID(orderID),
			logx.CourierID(courierID),
		)
		return nil, ErrAlreadyTaken
	default:
		c.observe("not_claimable")
		return nil, ErrNotClaimable
	}
}

// IsAlreadyTaken reports whether err means another courier holds the order.
func IsAlreadyTaken(err error) bool { return errors.Is(err, ErrAlreadyTaken) }

func (c *Coordinator) observe(outcome string) {
	if c.outcomes != nil {
		c.outcomes.WithLabelValues(outcome).Inc()
	}
}
