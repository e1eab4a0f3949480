package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/eventbus"
)

const repliesBuffer = 8

// Session is a single client connection registered in the hub.
type Session struct {
	id        string
	actor     domain.Actor
	sub       *eventbus.Subscription
	transport Transport
	openedAt  time.Time

	lastSeen atomic.Int64
	replies  chan Envelope

	done      chan struct{}
	closeOnce sync.Once
	reason    atomic.Value
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Actor returns the identity the session was opened with.
func (s *Session) Actor() domain.Actor { return s.actor }

// Topics returns the topics the session currently listens on.
func (s *Session) Topics() []string { return s.sub.Topics() }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Touch records client activity.
func (s *Session) Touch(at time.Time) {
	s.lastSeen.Store(at.UnixNano())
}

// LastSeen returns the time of the latest client activity.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// CloseReason returns why the session was closed, or "" while open.
func (s *Session) CloseReason() string {
	r, _ := s.reason.Load().(string)
	return r
}

func (s *Session) reply(env Envelope) bool {
	select {
	case s.replies <- env:
		return true
	default:
		return false
	}
}

// shut releases the subscription and the transport. It reports whether this call did the work.
func (s *Session) shut(reason string) bool {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.reason.Store(reason)
		s.sub.Close()
		close(s.done)
		_ = s.transport.Close(reason)
	})
	return first
}
