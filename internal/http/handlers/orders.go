package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/claim"
	"delivery-dispatch/internal/service/lifecycle"
)

const (
	msgTransitionConflict = "order state changed, please refresh"
	msgClaimConflict      = "order already taken"
)

// OrderHandler serves order creation, reads, transitions and claims.
type OrderHandler struct {
	orders      orderUsecase
	transitions transitionUsecase
	claims      claimUsecase
	logger      logx.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(logger logx.Logger, o orderUsecase, t transitionUsecase, c claimUsecase) *OrderHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &OrderHandler{orders: o, transitions: t, claims: c, logger: logger}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	o, err := h.orders.Create(r.Context(), actor, req.toModel(actor))
	if err != nil {
		writeServiceError(h.logger, w, r, err, "order already exists")
		return
	}
	w.Header().Set("Location", "/orders/"+o.ID)
	writeJSON(h.logger, w, r, http.StatusCreated, orderToResponse(*o))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(h.logger, w, r, err, msgTransitionConflict)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*o))
}

// List handles GET /orders?status=a,b&limit=n. Results are scoped to the caller.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	var statuses []domain.OrderStatus
	if s := q.Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st := domain.OrderStatus(strings.TrimSpace(part))
			if !st.Valid() {
				writeError(h.logger, w, r, http.StatusBadRequest, "invalid status "+strconv.Quote(part))
				return
			}
			statuses = append(statuses, st)
		}
	}

	list, err := h.orders.List(r.Context(), actor, statuses, limit)
	if err != nil {
		writeServiceError(h.logger, w, r, err, msgTransitionConflict)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, ordersToResponse(list))
}

// Transition handles POST /orders/{id}/transition.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	o, err := h.transitions.RequestTransition(r.Context(), lifecycle.Request{
		OrderID: chi.URLParam(r, "id"),
		Actor:   actor,
		From:    req.FromStatus,
		To:      req.ToStatus,
	})
	if err != nil {
		if lifecycle.IsClaimEdge(req.FromStatus, req.ToStatus) && errors.Is(err, apperr.ErrConflict) {
			h.writeClaimConflict(w, r, err)
			return
		}
		writeServiceError(h.logger, w, r, err, msgTransitionConflict)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*o))
}

// Claim handles POST /orders/{id}/claim.
func (h *OrderHandler) Claim(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}

	o, err := h.claims.ClaimAs(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			h.writeClaimConflict(w, r, err)
			return
		}
		writeServiceError(h.logger, w, r, err, msgClaimConflict)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, orderToResponse(*o))
}

func (h *OrderHandler) writeClaimConflict(w http.ResponseWriter, r *http.Request, err error) {
	reason := "not_claimable"
	if claim.IsAlreadyTaken(err) {
		reason = "already_taken"
	}
	writeJSON(h.logger, w, r, http.StatusConflict, errResponse{Error: msgClaimConflict, Reason: reason})
}
