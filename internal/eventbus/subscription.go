package eventbus

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Subscription is a bounded FIFO queue attached to one or more topics.
type Subscription struct {
	bus *Bus
	id  uint64

	// mu serialises enqueue so that evict-then-send stays atomic across publishers.
	mu sync.Mutex
	ch chan Message

	// topics is guarded by bus.mu.
	topics map[string]struct{}

	dropped   atomic.Uint64
	lagged    chan struct{}
	lagOnce   sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns a process-unique subscription number.
func (s *Subscription) ID() uint64 { return s.id }

// C returns the message queue. It is closed when the subscription closes.
func (s *Subscription) C() <-chan Message { return s.ch }

// Lagged is closed the first time a message had to be dropped for this subscription.
func (s *Subscription) Lagged() <-chan struct{} { return s.lagged }

// Done is closed when the subscription closes.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Dropped returns the number of messages evicted from the queue.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Topics returns the sorted list of attached topics.
func (s *Subscription) Topics() []string {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AddTopic attaches the subscription to topic. It is a no-op on a closed subscription.
func (s *Subscription) AddTopic(topic string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s]; !ok {
		return
	}
	s.bus.attachLocked(s, topic)
}

// RemoveTopic detaches the subscription from topic.
func (s *Subscription) RemoveTopic(topic string) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.detachLocked(s, topic)
}

// Close detaches the subscription from every topic. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

// enqueue adds m without blocking and reports whether an older message was evicted.
func (s *Subscription) enqueue(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.ch <- m:
		return false
	default:
	}

	evicted := false
	select {
	case <-s.ch:
		evicted = true
	default:
	}
	select {
	case s.ch <- m:
	default:
		evicted = true
	}
	if evicted {
		s.dropped.Add(1)
	}
	return evicted
}

func (s *Subscription) markLagged() bool {
	first := false
	s.lagOnce.Do(func() {
		close(s.lagged)
		first = true
	})
	return first
}

// finish must run with bus.mu held for writing so no publisher is mid-enqueue.
func (s *Subscription) finish() {
	s.closeOnce.Do(func() {
		close(s.done)
		close(s.ch)
	})
}
