// Package lifecycle validates and applies order status transitions.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// Request asks to move an order from the status the caller last saw to a new one.
type Request struct {
	OrderID string
	Actor   domain.Actor
	From    domain.OrderStatus
	To      domain.OrderStatus
}

type outcomeCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}

// Machine applies role-scoped transitions with a compare-and-set on the stored status.
type Machine struct {
	store            OrderStore
	claimer          Claimer
	publisher        Publisher
	operationTimeout time.Duration
	logger           logx.Logger
	outcomes         outcomeCounter
	now              func() time.Time
}

// NewMachine creates a Machine. outcomes may be nil.
func NewMachine(store OrderStore, claimer Claimer, pub Publisher, timeout time.Duration, logger logx.Logger, outcomes outcomeCounter) *Machine {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Machine{
		store:            store,
		claimer:          claimer,
		publisher:        pub,
		operationTimeout: timeout,
		logger:           logger,
		outcomes:         outcomes,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (m *Machine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.operationTimeout)
}

// RequestTransition moves the order from req.From to req.To on behalf of req.Actor.
//
// The edge must be allowed for the actor's role, the actor must own the order where the role
// requires it, and the stored status must still equal req.From when the update lands;
// otherwise the call fails with Forbidden, NotFound or Conflict and nothing changes.
// A request whose From and To both equal the current status succeeds without changes.
func (m *Machine) RequestTransition(ctx context.Context, req Request) (*domain.Order, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" || !req.From.Valid() || !req.To.Valid() {
		return nil, fmt.Errorf("%w: order id and valid statuses are required", apperr.ErrInvalid)
	}
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("%w: unknown actor", apperr.ErrForbidden)
	}

	if req.From == req.To {
		return m.noop(ctx, req)
	}

	if req.To == domain.StatusCancelled && req.From.Terminal() && canCancel(req.Actor.Role) {
		m.observe(req.To, "conflict")
		return nil, fmt.Errorf("%w: order is already %s", apperr.ErrConflict, req.From)
	}
	if !Allowed(req.Actor.Role, req.From, req.To) {
		m.observe(req.To, "forbidden")
		return nil, fmt.Errorf("%w: %s cannot move an order from %s to %s",
			apperr.ErrForbidden, req.Actor.Role, req.From, req.To)
	}
	if IsClaimEdge(req.From, req.To) {
		o, err := m.claimer.ClaimOrder(ctx, req.OrderID, req.Actor.ID)
		m.observe(req.To, resultOf(err))
		return o, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	cur, err := m.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", req.OrderID, err)
	}
	if cur == nil {
		m.observe(req.To, "not_found")
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, req.OrderID)
	}
	if !owns(req.Actor, cur) {
		m.observe(req.To, "forbidden")
		return nil, fmt.Errorf("%w: order %s does not belong to %s %s",
			apperr.ErrForbidden, cur.ID, req.Actor.Role, req.Actor.ID)
	}
	if cur.Status != req.From {
		m.observe(req.To, "conflict")
		return nil, fmt.Errorf("%w: order %s is %s, not %s", apperr.ErrConflict, cur.ID, cur.Status, req.From)
	}

	newCourier := cur.AssignedCourierID
	if !req.To.HoldsCourier() {
		newCourier = ""
	}
	changedAt := m.now()
	updated, err := m.store.CompareAndSetStatus(ctx, domain.StatusCAS{
		OrderID:           cur.ID,
		ExpectedStatus:    req.From,
		ExpectedCourierID: cur.AssignedCourierID,
		NewStatus:         req.To,
		NewCourierID:      newCourier,
		ChangedAt:         changedAt,
	})
	if err != nil {
		m.observe(req.To, "error")
		return nil, fmt.Errorf("update order %s: %w", cur.ID, err)
	}
	if updated == nil {
		m.observe(req.To, "conflict")
		return nil, fmt.Errorf("%w: order %s changed concurrently", apperr.ErrConflict, cur.ID)
	}

	change := domain.StatusChange{
		Order:     *updated,
		From:      req.From,
		To:        req.To,
		Actor:     req.Actor,
		ChangedAt: changedAt,
	}
	if cur.AssignedCourierID != newCourier {
		change.PreviousCourierID = cur.AssignedCourierID
	}
	m.observe(req.To, "ok")
	m.logger.Info("order status changed",
		logx.String("event", "order_status_changed"),
		logx.OrderID(updated.ID),
		logx.String("from", string(req.From)),
		logx.String("to", string(req.To)),
		logx.String("actor_role", string(req.Actor.Role)),
		logx.String("actor_id", req.Actor.ID),
	)
	m.publisher.StatusChanged(ctx, change)
	return updated, nil
}

func (m *Machine) noop(ctx context.Context, req Request) (*domain.Order, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	cur, err := m.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", req.OrderID, err)
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, req.OrderID)
	}
	if !sees(req.Actor, cur) {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrForbidden, cur.ID)
	}
	if cur.Status != req.From {
		return nil, fmt.Errorf("%w: order %s is %s, not %s", apperr.ErrConflict, cur.ID, cur.Status, req.From)
	}
	return cur, nil
}

// sees reports whether the actor may read the order. Couriers also see orders open for claim.
func sees(a domain.Actor, o *domain.Order) bool {
	switch a.Role {
	case domain.RoleCustomer:
		return a.ID != "" && o.CustomerID == a.ID
	case domain.RoleCourier:
		return a.ID != "" && (o.AssignedCourierID == a.ID || o.Claimable())
	default:
		return owns(a, o)
	}
}

func owns(a domain.Actor, o *domain.Order) bool {
	switch a.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleBusiness:
		return o.BusinessID == a.ID
	case domain.RoleCourier:
		return o.AssignedCourierID == a.ID
	default:
		return false
	}
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "rejected"
}

func (m *Machine) observe(to domain.OrderStatus, result string) {
	if m.outcomes != nil {
		m.outcomes.WithLabelValues(string(to), result).Inc()
	}
}
