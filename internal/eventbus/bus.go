// Package eventbus is an in-process topic publish/subscribe.
//
// Publish never blocks: every subscription owns a bounded FIFO queue. When a queue is full the
// oldest message is evicted and the subscription is flagged as lagged so the consumer can force
// its client to reconnect and reconcile. Messages are not persisted or replayed.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"delivery-dispatch/internal/logx"
)

// DefaultQueueSize is the per-subscription queue capacity when none is configured.
const DefaultQueueSize = 64

// Message is a single event routed by topic. Payload is opaque to the bus.
type Message struct {
	Type    string
	Topic   string
	Key     string
	Payload any
	At      time.Time
}

type counter interface {
	Inc()
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the per-subscription queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(l logx.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCounters sets counters for enqueued and evicted messages. Nil counters are ignored.
func WithCounters(published, dropped counter) Option {
	return func(b *Bus) {
		b.published = published
		b.dropped = dropped
	}
}

// Bus routes messages to subscriptions by topic.
type Bus struct {
	mu        sync.RWMutex
	topics    map[string]map[*Subscription]struct{}
	subs      map[*Subscription]struct{}
	closed    bool
	queueSize int
	nextID    atomic.Uint64

	logger    logx.Logger
	published counter
	dropped   counter
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics:    make(map[string]map[*Subscription]struct{}),
		subs:      make(map[*Subscription]struct{}),
		queueSize: DefaultQueueSize,
		logger:    logx.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscription for the given topics. Subscribing to a closed bus returns
// an already closed subscription.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	s := &Subscription{
		bus:    b,
		id:     b.nextID.Add(1),
		ch:     make(chan Message, b.queueSize),
		topics: make(map[string]struct{}, len(topics)),
		lagged: make(chan struct{}),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.finish()
		return s
	}
	b.subs[s] = struct{}{}
	for _, t := range topics {
		b.attachLocked(s, t)
	}
	return s
}

// Publish delivers msg to every subscription of any of the topics, at most once per subscription.
// It returns the number of subscriptions reached.
func (b *Bus) Publish(msg Message, topics ...string) int {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}

	var seen map[*Subscription]struct{}
	if len(topics) > 1 {
		seen = make(map[*Subscription]struct{})
	}

	delivered := 0
	for _, topic := range topics {
		for s := range b.topics[topic] {
			if seen != nil {
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
			}
			m := msg
			m.Topic = topic
			if s.enqueue(m) {
				b.onDrop(s, topic)
			}
			if b.published != nil {
				b.published.Inc()
			}
			delivered++
		}
	}
	return delivered
}

// SubscriberCount returns the number of subscriptions attached to topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Len returns the number of open subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription and rejects further publishing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.finish()
	}
	b.subs = map[*Subscription]struct{}{}
	b.topics = map[string]map[*Subscription]struct{}{}
}

func (b *Bus) onDrop(s *Subscription, topic string) {
	if b.dropped != nil {
		b.dropped.Inc()
	}
	if s.markLagged() {
		b.logger.Warn("subscriber lagging, oldest message dropped",
			logx.Int64("subscription", int64(s.id)),
			logx.Topic(topic),
		)
	}
}

func (b *Bus) attachLocked(s *Subscription, topic string) {
	set, ok := b.topics[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.topics[topic] = set
	}
	set[s] = struct{}{}
	s.topics[topic] = struct{}{}
}

func (b *Bus) detachLocked(s *Subscription, topic string) {
	if set, ok := b.topics[topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.topics, topic)
		}
	}
	delete(s.topics, topic)
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	for t := range s.topics {
		b.detachLocked(s, t)
	}
	delete(b.subs, s)
	s.finish()
}

// Envelope is the serialized form of a Message for external sinks.
type Envelope struct {
	Type    string    `json:"type"`
	Topic   string    `json:"topic"`
	Key     string    `json:"key,omitempty"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// EnvelopeOf converts msg for serialization.
func EnvelopeOf(msg Message) Envelope {
	return Envelope{Type: msg.Type, Topic: msg.Topic, Key: msg.Key, Payload: msg.Payload, At: msg.At.UTC()}
}
