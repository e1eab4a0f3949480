package lifecycle

import "delivery-dispatch/internal/domain"

type edgeKey struct {
	role domain.Role
	from domain.OrderStatus
}

type statusSet map[domain.OrderStatus]struct{}

func set(ss ...domain.OrderStatus) statusSet {
	out := make(statusSet, len(ss))
	for _, s := range ss {
		out[s] = struct{}{}
	}
	return out
}

// transitions is the role-scoped edge table. Customers have no edges.
var transitions = buildTable()

func buildTable() map[edgeKey]statusSet {
	t := map[edgeKey]statusSet{
		{domain.RoleBusiness, domain.StatusCreated}:        set(domain.StatusPreparing, domain.StatusCancelled),
		{domain.RoleBusiness, domain.StatusPreparing}:      set(domain.StatusReady, domain.StatusCancelled),
		{domain.RoleBusiness, domain.StatusReady}:          set(domain.StatusCourierPending, domain.StatusCancelled),
		{domain.RoleBusiness, domain.StatusCourierPending}: set(domain.StatusCancelled),

		{domain.RoleCourier, domain.StatusCourierPending}: set(domain.StatusAssigned),
		{domain.RoleCourier, domain.StatusAssigned}:       set(domain.StatusPickedUp, domain.StatusCourierPending),
		{domain.RoleCourier, domain.StatusPickedUp}:       set(domain.StatusOnTheWay),
		{domain.RoleCourier, domain.StatusOnTheWay}:       set(domain.StatusDelivered),
	}

	// admins may take every forward business and courier edge except the claim, and may
	// cancel any non-terminal order
	admin := func(from domain.OrderStatus, to ...domain.OrderStatus) {
		k := edgeKey{domain.RoleAdmin, from}
		if t[k] == nil {
			t[k] = statusSet{}
		}
		for _, s := range to {
			t[k][s] = struct{}{}
		}
	}
	admin(domain.StatusCreated, domain.StatusPreparing)
	admin(domain.StatusPreparing, domain.StatusReady)
	admin(domain.StatusReady, domain.StatusCourierPending)
	admin(domain.StatusAssigned, domain.StatusPickedUp, domain.StatusCourierPending)
	admin(domain.StatusPickedUp, domain.StatusOnTheWay)
	admin(domain.StatusOnTheWay, domain.StatusDelivered)
	for _, s := range domain.AllStatuses() {
		if !s.Terminal() {
			admin(s, domain.StatusCancelled)
		}
	}
	return t
}

// Allowed reports whether role may move an order from one status to another.
func Allowed(role domain.Role, from, to domain.OrderStatus) bool {
	_, ok := transitions[edgeKey{role, from}][to]
	return ok
}

// IsClaimEdge reports whether the edge is the courier claim.
func IsClaimEdge(from, to domain.OrderStatus) bool {
	return from == domain.StatusCourierPending && to == domain.StatusAssigned
}

// Targets returns the statuses role may move an order to from the given status.
func Targets(role domain.Role, from domain.OrderStatus) []domain.OrderStatus {
	out := make([]domain.OrderStatus, 0)
	for _, s := range domain.AllStatuses() {
		if Allowed(role, from, s) {
			out = append(out, s)
		}
	}
	return out
}

func canCancel(role domain.Role) bool {
	return role == domain.RoleBusiness || role == domain.RoleAdmin
}
