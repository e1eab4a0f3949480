package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/orders"
)

// HandleFunc processes one intake event.
type HandleFunc func(context.Context, orders.IntakeEvent) error

var newConsumerGroup = sarama.NewConsumerGroup

const (
	minRejoinDelay = 500 * time.Millisecond
	maxRejoinDelay = 30 * time.Second
)

// Consumer reads order intake events from a consumer group and hands them to a HandleFunc.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
	logger  logx.Logger
}

// NewConsumer joins groupID on brokers. It returns nil when Kafka is not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = "dispatch-intake"
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		logger:  logger.With(logx.Topic(topic), logx.String("group", groupID)),
	}, nil
}

// Run consumes until ctx ends. A failed session rejoins after a capped exponential delay.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	delay := minRejoinDelay
	for {
		err := c.group.Consume(ctx, []string{c.topic}, &groupHandler{c: c})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			delay = minRejoinDelay
			continue
		}

		c.logger.Error("intake session failed, rejoining", logx.Duration("delay", delay), logx.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRejoinDelay)
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim commits every message it is done with. Returning an error leaves the
// failed message uncommitted so the next session redelivers it.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.c.logger.With(logx.Int("partition", int(msg.Partition)), logx.Int64("offset", msg.Offset))

		ev, ok := decodeIntake(msg, log)
		if !ok {
			sess.MarkMessage(msg, "")
			continue
		}

		err := h.c.handler(sess.Context(), ev)
		switch {
		case err == nil:
			log.Debug("intake event handled", logx.String("event_id", ev.EventID), logx.String("type", ev.Type))
		case IsPermanent(err):
			log.Warn("intake event rejected, skipping",
				logx.String("event_id", ev.EventID),
				logx.String("type", ev.Type),
				logx.Err(err),
			)
		default:
			log.Error("intake event failed, will be redelivered",
				logx.String("event_id", ev.EventID),
				logx.String("type", ev.Type),
				logx.Err(err),
			)
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// decodeIntake parses msg. The message key stands in for a missing event id so
// redeliveries of the same message stay idempotent.
func decodeIntake(msg *sarama.ConsumerMessage, log logx.Logger) (orders.IntakeEvent, bool) {
	var dto EventDTO
	if err := json.Unmarshal(msg.Value, &dto); err != nil {
		log.Warn("intake message is not valid json, skipping", logx.Err(err))
		return orders.IntakeEvent{}, false
	}
	ev := ToDomain(dto)
	if ev.EventID == "" {
		ev.EventID = strings.TrimSpace(string(msg.Key))
	}
	canonical, ok := orders.CanonicalIntakeType(ev.Type)
	if !ok {
		log.Warn("intake event type unsupported, skipping",
			logx.String("event_id", ev.EventID),
			logx.String("type", ev.Type),
		)
		return orders.IntakeEvent{}, false
	}
	ev.Type = canonical
	return ev, true
}
