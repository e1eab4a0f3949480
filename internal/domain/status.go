package domain

// OrderStatus is a lifecycle state of an order.
type OrderStatus string

// List of order statuses in lifecycle order.
const (
	StatusCreated        OrderStatus = "created"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusCourierPending OrderStatus = "courier_pending"
	StatusAssigned       OrderStatus = "assigned"
	StatusPickedUp       OrderStatus = "picked_up"
	StatusOnTheWay       OrderStatus = "on_the_way"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

var allowedStatuses = [...]OrderStatus{
	StatusCreated, StatusPreparing, StatusReady, StatusCourierPending,
	StatusAssigned, StatusPickedUp, StatusOnTheWay, StatusDelivered, StatusCancelled,
}

// Valid checks if the OrderStatus is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// HoldsCourier reports whether an order in this status must carry an assigned courier.
func (s OrderStatus) HoldsCourier() bool {
	switch s {
	case StatusAssigned, StatusPickedUp, StatusOnTheWay, StatusDelivered:
		return true
	default:
		return false
	}
}

// Active reports whether a courier is currently engaged with the order.
func (s OrderStatus) Active() bool {
	return s.HoldsCourier() && !s.Terminal()
}

// AllStatuses returns every known status.
func AllStatuses() []OrderStatus {
	out := make([]OrderStatus, len(allowedStatuses))
	copy(out, allowedStatuses[:])
	return out
}

// Role is the kind of actor performing a request.
type Role string

// List of actor roles.
const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleCourier  Role = "courier"
	RoleAdmin    Role = "admin"
)

// Valid checks if the Role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBusiness, RoleCourier, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor is the authenticated caller as supplied by the auth collaborator.
type Actor struct {
	Role Role
	ID   string
}

// Valid reports whether the actor carries a known role and, except for admins, an id.
func (a Actor) Valid() bool {
	if !a.Role.Valid() {
		return false
	}
	return a.Role == RoleAdmin || a.ID != ""
}

// ActiveStatuses returns the statuses in which a courier is engaged with an order.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{StatusAssigned, StatusPickedUp, StatusOnTheWay}
}
