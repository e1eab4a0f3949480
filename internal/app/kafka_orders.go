package app

import (
	"context"
	"errors"
	"time"

	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/transport/kafka"
)

type intakeHandler interface {
	Handle(ctx context.Context, ev orders.IntakeEvent) error
}

// makeOrdersKafka adapts the intake processor to the Kafka consumer: rejected
// events become permanent so the consumer skips them instead of redelivering.
func makeOrdersKafka(p intakeHandler, timeout time.Duration) kafka.HandleFunc {
	return func(ctx context.Context, ev orders.IntakeEvent) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		err := p.Handle(ctx, ev)
		if err != nil && errors.Is(err, orders.ErrRejected) {
			return kafka.Permanent(err)
		}
		return err
	}
}
