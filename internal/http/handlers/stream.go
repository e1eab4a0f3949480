package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/hub"
	"delivery-dispatch/internal/hub/sseconn"
	"delivery-dispatch/internal/hub/wsconn"
	"delivery-dispatch/internal/logx"
)

// StreamHandler attaches live connections to the notification hub.
type StreamHandler struct {
	hub    sessionHub
	logger logx.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(logger logx.Logger, h sessionHub) *StreamHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &StreamHandler{hub: h, logger: logger}
}

// WebSocket handles GET /ws. The handshake is validated before the upgrade so
// rejections are plain HTTP errors.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	hs, actor, ok := h.handshake(w, r)
	if !ok {
		return
	}

	ws, err := wsconn.Upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("websocket upgrade failed", logx.Err(err))
		return
	}
	conn := wsconn.New(ws)

	s, err := h.hub.Open(hs, actor, conn)
	if err != nil {
		_ = conn.Close(err.Error())
		return
	}

	go func() {
		grace := h.hub.Config().Grace
		err := conn.ReadLoop(grace,
			func(frame []byte) {
				if err := h.hub.HandleFrame(s, frame); err != nil {
					h.logger.Debug("client frame rejected", logx.SessionID(s.ID()), logx.Err(err))
				}
			},
			func() { s.Touch(time.Now()) },
		)
		if err != nil {
			h.logger.Debug("websocket read ended", logx.SessionID(s.ID()), logx.Err(err))
		}
		h.hub.Close(s, hub.ReasonClientGone)
	}()

	if err := h.hub.Serve(r.Context(), s); err != nil {
		h.logger.Debug("websocket session ended", logx.SessionID(s.ID()), logx.Err(err))
	}
}

// Events handles GET /events as a Server-Sent Events stream.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	hs, actor, ok := h.handshake(w, r)
	if !ok {
		return
	}

	stream, err := sseconn.New(w)
	if err != nil {
		writeError(h.logger, w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	s, err := h.hub.Open(hs, actor, stream)
	if err != nil {
		// Headers are already sent; the client sees the stream end.
		h.logger.Warn("event stream rejected", logx.Err(err))
		return
	}
	stream.OnAlive(func() { s.Touch(time.Now()) })

	if err := h.hub.Serve(r.Context(), s); err != nil {
		h.logger.Debug("event stream ended", logx.SessionID(s.ID()), logx.Err(err))
	}
}

// handshake reads the declared identity from the query, falling back to the
// authenticated actor when no role is given. Anonymous callers get 401.
func (h *StreamHandler) handshake(w http.ResponseWriter, r *http.Request) (hub.Handshake, *domain.Actor, bool) {
	a, ok := requireActor(h.logger, w, r)
	if !ok {
		return hub.Handshake{}, nil, false
	}
	actor := &a

	q := r.URL.Query()
	hs := hub.Handshake{
		Role:       domain.Role(strings.ToLower(strings.TrimSpace(q.Get("role")))),
		BusinessID: q.Get("business_id"),
		CourierID:  q.Get("courier_id"),
		CustomerID: q.Get("customer_id"),
	}
	if hs.Role == "" {
		hs = handshakeFor(a)
	}

	_, err := hs.Topics()
	if err == nil {
		err = hs.Authorize(actor)
	}
	switch {
	case err == nil:
		return hs, actor, true
	case errors.Is(err, apperr.ErrForbidden):
		writeError(h.logger, w, r, http.StatusForbidden, err.Error())
	default:
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
	}
	return hs, actor, false
}

func handshakeFor(a domain.Actor) hub.Handshake {
	hs := hub.Handshake{Role: a.Role}
	switch a.Role {
	case domain.RoleBusiness:
		hs.BusinessID = a.ID
	case domain.RoleCourier:
		hs.CourierID = a.ID
	case domain.RoleCustomer:
		hs.CustomerID = a.ID
	}
	return hs
}
