package app

import (
	"fmt"

	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/relay"
	"delivery-dispatch/internal/transport/amqp"
	"delivery-dispatch/internal/transport/kafka"
)

var (
	newKafkaSink = func(brokers []string, topic string) (relay.Sink, error) {
		p, err := kafka.NewProducer(brokers, topic)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	}
	newAMQPSink = func(url, exchange string) (relay.Sink, error) {
		p, err := amqp.NewPublisher(url, exchange)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	}
)

func registerRelay(container *dig.Container) error {
	return provideAll(container, newRelaySink, newForwarder)
}

// newRelaySink returns the configured external sink, or nil when relaying is off.
func newRelaySink(cfg *config.Config) (relay.Sink, error) {
	switch cfg.Relay {
	case config.RelayNone, "":
		return nil, nil
	case config.RelayKafka:
		sink, err := newKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return nil, fmt.Errorf("kafka relay: %w", err)
		}
		return sink, nil
	case config.RelayAMQP:
		sink, err := newAMQPSink(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, fmt.Errorf("amqp relay: %w", err)
		}
		return sink, nil
	}
	return nil, fmt.Errorf("unknown relay sink %q", cfg.Relay)
}

func newForwarder(bus *eventbus.Bus, sink relay.Sink, logger logx.Logger, m *metrics.Set) *relay.Forwarder {
	if sink == nil {
		return nil
	}
	return relay.NewForwarder(bus, sink, logger, m.RelayFailures, relaySendTimeout)
}
