// Package relay forwards the admin event stream to an external broker.
package relay

import (
	"context"
	"time"

	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/logx"
)

const defaultSendTimeout = 5 * time.Second

// Sink delivers a single bus message to an external system.
type Sink interface {
	Send(ctx context.Context, msg eventbus.Message) error
	Close() error
}

type subscriber interface {
	Subscribe(topics ...string) *eventbus.Subscription
}

type counter interface {
	Inc()
}

// Forwarder copies every message on the admin topic into a Sink.
type Forwarder struct {
	bus         subscriber
	sink        Sink
	logger      logx.Logger
	failures    counter
	sendTimeout time.Duration
}

// NewForwarder creates a Forwarder. failures may be nil.
func NewForwarder(bus subscriber, sink Sink, logger logx.Logger, failures counter, sendTimeout time.Duration) *Forwarder {
	if logger == nil {
		logger = logx.Nop()
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Forwarder{
		bus:         bus,
		sink:        sink,
		logger:      logger.With(logx.String("component", "relay")),
		failures:    failures,
		sendTimeout: sendTimeout,
	}
}

// Run forwards messages until ctx is cancelled or the bus shuts down.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.bus.Subscribe(eventbus.AdminTopic)
	defer sub.Close()

	lagged := sub.Lagged()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lagged:
			f.logger.Warn("relay lagging, events dropped", logx.Int64("dropped", int64(sub.Dropped())))
			lagged = nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			f.forward(ctx, msg)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, msg eventbus.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, f.sendTimeout)
	defer cancel()

	if err := f.sink.Send(sendCtx, msg); err != nil {
		if f.failures != nil {
			f.failures.Inc()
		}
		f.logger.Warn("relay send failed",
			logx.String("type", msg.Type),
			logx.String("key", msg.Key),
			logx.Err(err),
		)
	}
}

// Close closes the sink
func (f *Forwarder) Close() error {
	return f.sink.Close()
}
