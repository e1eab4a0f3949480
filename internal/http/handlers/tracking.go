package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"delivery-dispatch/internal/logx"
)

// TrackingHandler serves courier location reports and reads.
type TrackingHandler struct {
	tracker trackingUsecase
	logger  logx.Logger
}

// NewTrackingHandler creates a TrackingHandler.
func NewTrackingHandler(logger logx.Logger, tracker trackingUsecase) *TrackingHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &TrackingHandler{tracker: tracker, logger: logger}
}

// Report handles PUT /couriers/{id}/location.
func (h *TrackingHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}
	var req locationRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	sample, err := h.tracker.ReportLocation(r.Context(), actor, req.toModel(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(h.logger, w, r, err, "conflict")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, locationToResponse(sample))
}

// Get handles GET /couriers/{id}/location.
func (h *TrackingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(h.logger, w, r)
	if !ok {
		return
	}

	sample, err := h.tracker.GetLocation(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(h.logger, w, r, err, "conflict")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, locationToResponse(*sample))
}
