// Package amqp publishes relayed bus messages to a RabbitMQ fanout exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"delivery-dispatch/internal/eventbus"
)

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connection interface {
	Close() error
}

var dial = func(url string) (connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// Publisher sends every message to a durable fanout exchange.
type Publisher struct {
	conn     connection
	ch       channel
	exchange string

	mu sync.Mutex
}

// NewPublisher dials url and declares exchange. It returns nil when AMQP is not configured.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(exchange) == "" {
		return nil, nil
	}

	conn, ch, err := dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Send publishes msg as a persistent JSON message routed by its type.
func (p *Publisher) Send(ctx context.Context, msg eventbus.Message) error {
	body, err := json.Marshal(eventbus.EnvelopeOf(msg))
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, msg.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.Key,
		Type:         msg.Type,
		Timestamp:    msg.At.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", msg.Type, err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return errors.Join(p.ch.Close(), p.conn.Close())
}
