package app

import (
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/transport/kafka"
)

var newIntakeConsumer = kafka.NewConsumer

func registerIntake(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config, logger logx.Logger, p *orders.Processor) (*kafka.Consumer, error) {
			return newIntakeConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.IntakeTopic,
				makeOrdersKafka(p, cfg.Dispatch.OperationTimeout*2))
		},
	)
}
