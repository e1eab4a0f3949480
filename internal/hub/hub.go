// Package hub keeps the registry of live client sessions and pushes bus
// messages to them over any Transport.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/logx"
)

// Close reasons.
const (
	ReasonClientGone       = "client gone"
	ReasonHeartbeatTimeout = "heartbeat timeout"
	ReasonLagging          = "lagging"
	ReasonWriteFailed      = "write failed"
	ReasonShutdown         = "server shutdown"
)

// Config holds heartbeat and write limits.
type Config struct {
	HeartbeatInterval time.Duration
	Grace             time.Duration
	WriteTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.Grace <= 0 {
		c.Grace = 3 * c.HeartbeatInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

type subscriber interface {
	Subscribe(topics ...string) *eventbus.Subscription
}

type gauge interface {
	Set(float64)
}

// Hub is the owned registry of sessions. Create one per server with New.
type Hub struct {
	bus    subscriber
	cfg    Config
	logger logx.Logger
	gauge  gauge
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// New creates a Hub. sessions may be nil.
func New(bus subscriber, cfg Config, logger logx.Logger, sessions gauge) *Hub {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Hub{
		bus:      bus,
		cfg:      cfg.withDefaults(),
		logger:   logger.With(logx.String("component", "hub")),
		gauge:    sessions,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Config returns the effective configuration.
func (h *Hub) Config() Config { return h.cfg }

// Open validates the handshake and registers a session subscribed to the role's topics.
// actor is the authenticated caller; a nil actor is refused with Unauthenticated.
func (h *Hub) Open(hs Handshake, actor *domain.Actor, t Transport) (*Session, error) {
	topics, err := hs.Topics()
	if err != nil {
		return nil, err
	}
	if err := hs.Authorize(actor); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: hub is shutting down", apperr.ErrUnavailable)
	}

	s := &Session{
		id:        h.newID(),
		actor:     hs.Actor(),
		sub:       h.bus.Subscribe(topics...),
		transport: t,
		openedAt:  h.now(),
		replies:   make(chan Envelope, repliesBuffer),
		done:      make(chan struct{}),
	}
	s.Touch(s.openedAt)
	h.sessions[s.id] = s
	h.setGaugeLocked()

	h.logger.Info("hub session opened",
		logx.SessionID(s.id),
		logx.String("role", string(s.actor.Role)),
		logx.String("actor_id", s.actor.ID),
		logx.Any("topics", topics),
	)
	return s, nil
}

// Serve pushes messages, replies and heartbeats to s until it closes. The session
// is always closed and unregistered when Serve returns.
func (h *Hub) Serve(ctx context.Context, s *Session) error {
	reason := ReasonClientGone
	defer func() { h.Close(s, reason) }()

	if err := h.send(ctx, s, Envelope{
		Type:    FrameHello,
		Payload: HelloPayload{SessionID: s.id, Topics: s.Topics()},
	}); err != nil {
		reason = ReasonWriteFailed
		return err
	}

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	lagged := s.sub.Lagged()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-lagged:
			reason = ReasonLagging
			h.logger.Warn("hub session lagging, asking client to reconnect",
				logx.SessionID(s.id),
				logx.Int64("dropped", int64(s.sub.Dropped())),
			)
			_ = h.send(ctx, s, Envelope{Type: FrameReconnect})
			return nil
		case msg, ok := <-s.sub.C():
			if !ok {
				return nil
			}
			if err := h.send(ctx, s, Envelope{Type: msg.Type, Topic: msg.Topic, Payload: msg.Payload}); err != nil {
				reason = ReasonWriteFailed
				return err
			}
		case env := <-s.replies:
			if err := h.send(ctx, s, env); err != nil {
				reason = ReasonWriteFailed
				return err
			}
		case <-ticker.C:
			if h.expired(s) {
				reason = ReasonHeartbeatTimeout
				h.logger.Warn("hub heartbeat timeout",
					logx.SessionID(s.id),
					logx.Time("last_seen", s.LastSeen()),
				)
				return nil
			}
			pingCtx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := s.transport.Ping(pingCtx)
			cancel()
			if err != nil {
				reason = ReasonWriteFailed
				return err
			}
		}
	}
}

// HandleFrame processes a frame read from the client. Any frame counts as activity.
// The returned error describes a rejected frame; the client is told via an error frame.
func (h *Hub) HandleFrame(s *Session, data []byte) error {
	s.Touch(h.now())

	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return h.reject(s, fmt.Errorf("%w: malformed frame", apperr.ErrInvalid))
	}

	switch f.Type {
	case ClientPing:
		s.reply(Envelope{Type: FramePong})
		return nil
	case ClientSubscribe:
		if !entitled(s.actor, f.Topic) {
			return h.reject(s, fmt.Errorf("%w: not entitled to topic %q", apperr.ErrForbidden, f.Topic))
		}
		s.sub.AddTopic(f.Topic)
		s.reply(Envelope{Type: FrameSubscribed, Topic: f.Topic})
		return nil
	case ClientUnsubscribe:
		s.sub.RemoveTopic(f.Topic)
		s.reply(Envelope{Type: FrameUnsubscribed, Topic: f.Topic})
		return nil
	}
	return h.reject(s, fmt.Errorf("%w: unknown frame type %q", apperr.ErrInvalid, f.Type))
}

// Close closes s and removes it from the registry. Safe to call more than once.
func (h *Hub) Close(s *Session, reason string) {
	if !s.shut(reason) {
		return
	}

	h.mu.Lock()
	delete(h.sessions, s.id)
	h.setGaugeLocked()
	h.mu.Unlock()

	h.logger.Info("hub session closed",
		logx.SessionID(s.id),
		logx.String("reason", reason),
		logx.Duration("lifetime", h.now().Sub(s.openedAt)),
	)
}

// Sweep closes every session silent for longer than the grace period and returns how many.
func (h *Hub) Sweep() int {
	h.mu.RLock()
	var stale []*Session
	for _, s := range h.sessions {
		if h.expired(s) {
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		h.logger.Warn("hub heartbeat timeout",
			logx.SessionID(s.id),
			logx.Time("last_seen", s.LastSeen()),
		)
		h.Close(s, ReasonHeartbeatTimeout)
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RefreshGauge re-publishes the session count.
func (h *Hub) RefreshGauge() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.setGaugeLocked()
}

// Shutdown rejects new sessions and closes every open one.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.Unlock()

	for _, s := range all {
		h.Close(s, ReasonShutdown)
	}
	h.logger.Info("hub stopped", logx.Int("closed_sessions", len(all)))
}

func (h *Hub) expired(s *Session) bool {
	return h.now().Sub(s.LastSeen()) > h.cfg.Grace
}

func (h *Hub) reject(s *Session, err error) error {
	s.reply(Envelope{Type: FrameError, Payload: errorPayload{Message: err.Error()}})
	return err
}

func (h *Hub) send(ctx context.Context, s *Session, env Envelope) error {
	env.SentAt = h.now().UTC()
	frame, err := encode(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return s.transport.Send(ctx, frame)
}

func (h *Hub) setGaugeLocked() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.sessions)))
	}
}
