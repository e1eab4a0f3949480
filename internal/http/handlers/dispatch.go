package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// DispatchHandler serves the courier-facing discovery queries.
type DispatchHandler struct {
	index  dispatchUsecase
	logger logx.Logger
}

// NewDispatchHandler creates a DispatchHandler.
func NewDispatchHandler(logger logx.Logger, index dispatchUsecase) *DispatchHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DispatchHandler{index: index, logger: logger}
}

// NearbyBusinesses handles GET /dispatch/businesses?lat=&lng=&radius=.
func (h *DispatchHandler) NearbyBusinesses(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.courierOrAdmin(w, r); !ok {
		return
	}

	q := r.URL.Query()
	var coords [3]float64
	for i, name := range []string{"lat", "lng", "radius"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid "+name)
			return
		}
		coords[i] = v
	}

	list, err := h.index.NearbyBusinesses(r.Context(), coords[0], coords[1], coords[2])
	if err != nil {
		writeServiceError(h.logger, w, r, err, "conflict")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, nearbyToResponse(list))
}

// AvailableOrders handles GET /dispatch/businesses/{id}/orders.
func (h *DispatchHandler) AvailableOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.courierOrAdmin(w, r); !ok {
		return
	}

	list, err := h.index.AvailableOrders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(h.logger, w, r, err, "conflict")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, availableToResponse(list))
}

func (h *DispatchHandler) courierOrAdmin(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return actor, false
	}
	if actor.Role != domain.RoleCourier && actor.Role != domain.RoleAdmin {
		writeError(h.logger, w, r, http.StatusForbidden, "action not permitted for this actor")
		return actor, false
	}
	return actor, true
}
