package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/dig"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/relay"
	"delivery-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the intake worker
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun consumes intake events until the container context ends.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerIn struct {
	dig.In
	Ctx       context.Context
	Logger    logx.Logger
	Consumer  *kafka.Consumer
	Forwarder *relay.Forwarder `optional:"true"`
	Storage   *storage
}

func runWorker(container *dig.Container) error {
	return container.Invoke(func(in workerIn) error {
		return workerRun(in.Ctx, in.Storage, in.Logger, in.Consumer, in.Forwarder)
	})
}

func workerRun(ctx context.Context, st *storage, logger logx.Logger, consumer *kafka.Consumer, f *relay.Forwarder) error {
	if consumer == nil {
		return fmt.Errorf("kafka consumer is nil: set KAFKA_BROKERS for the intake worker")
	}
	stopRelay := startRelay(ctx, f, logger)
	defer closeWorker(st, logger, consumer, stopRelay)

	logger.Info("intake worker started")
	return consumer.Run(ctx)
}

func closeWorker(st *storage, logger logx.Logger, consumer *kafka.Consumer, stopRelay func()) {
	if err := consumer.Close(); err != nil {
		logger.Error("kafka close error", logx.Err(err))
	}
	stopRelay()
	st.Close()
}
