package hub

import (
	"fmt"
	"strings"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/eventbus"
)

// Handshake is what a client declares when it connects.
type Handshake struct {
	Role       domain.Role
	BusinessID string
	CourierID  string
	CustomerID string
}

// Identity returns the id the role is bound to. Admins have none.
func (h Handshake) Identity() string {
	switch h.Role {
	case domain.RoleBusiness:
		return strings.TrimSpace(h.BusinessID)
	case domain.RoleCourier:
		return strings.TrimSpace(h.CourierID)
	case domain.RoleCustomer:
		return strings.TrimSpace(h.CustomerID)
	}
	return ""
}

// Actor returns the actor the session acts as.
func (h Handshake) Actor() domain.Actor {
	return domain.Actor{Role: h.Role, ID: h.Identity()}
}

// Topics maps the declared role to its default topics.
func (h Handshake) Topics() ([]string, error) {
	id := h.Identity()
	switch h.Role {
	case domain.RoleAdmin:
		return []string{eventbus.AdminTopic}, nil
	case domain.RoleBusiness:
		if id == "" {
			return nil, fmt.Errorf("%w: business_id is required", apperr.ErrInvalid)
		}
		return []string{eventbus.BusinessTopic(id)}, nil
	case domain.RoleCourier:
		if id == "" {
			return nil, fmt.Errorf("%w: courier_id is required", apperr.ErrInvalid)
		}
		return []string{eventbus.CourierTopic(id), eventbus.CourierPoolTopic}, nil
	case domain.RoleCustomer:
		if id == "" {
			return nil, fmt.Errorf("%w: customer_id is required", apperr.ErrInvalid)
		}
		return []string{eventbus.CustomerTopic(id)}, nil
	}
	return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalid, h.Role)
}

// Authorize checks the declaration against the authenticated actor.
func (h Handshake) Authorize(actor *domain.Actor) error {
	if actor == nil {
		return fmt.Errorf("%w: actor identity is required", apperr.ErrUnauthenticated)
	}
	if actor.Role != h.Role {
		return fmt.Errorf("%w: declared role %q, authenticated as %q", apperr.ErrForbidden, h.Role, actor.Role)
	}
	if h.Role != domain.RoleAdmin && actor.ID != h.Identity() {
		return fmt.Errorf("%w: identity mismatch", apperr.ErrForbidden)
	}
	return nil
}

// entitled reports whether actor may listen on topic.
func entitled(actor domain.Actor, topic string) bool {
	if !eventbus.KnownTopic(topic) {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleBusiness:
		return topic == eventbus.BusinessTopic(actor.ID)
	case domain.RoleCourier:
		return topic == eventbus.CourierTopic(actor.ID) || topic == eventbus.CourierPoolTopic
	case domain.RoleCustomer:
		return topic == eventbus.CustomerTopic(actor.ID)
	}
	return false
}
