package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/service/claim"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/service/lifecycle"
	"delivery-dispatch/internal/service/orderevents"
	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/service/readretry"
	"delivery-dispatch/internal/service/tracking"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect  dbConnectFunc
	loadConfig func() (*config.Config, error)
	logFatalf  func(string, ...interface{})
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect:  connectDbWithRetry,
		loadConfig: config.Load,
		logFatalf:  log.Fatalf,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithConfig makes the container use cfg instead of loading it from the environment.
func (b *ContainerBuilder) WithConfig(cfg *config.Config) *ContainerBuilder {
	if cfg != nil {
		b.loadConfig = func() (*config.Config, error) { return cfg, nil }
	}
	return b
}

// WithRegistry registers and serves metrics from reg instead of the default registry.
func (b *ContainerBuilder) WithRegistry(reg *prometheus.Registry) *ContainerBuilder {
	if reg != nil {
		b.registerer = reg
		b.gatherer = reg
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds the API container: HTTP surface, hub, jobs and relay.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	return b.must(b.build(ctx))
}

// MustBuildWorker builds the intake worker container.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	return b.must(b.buildWorker(ctx))
}

func (b *ContainerBuilder) must(container *dig.Container, err error) *dig.Container {
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container, err := b.buildBase(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerLive(container); err != nil {
		return nil, fmt.Errorf("live: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container, err := b.buildBase(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerIntake(container); err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) buildBase(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig, b.registerer, b.gatherer); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStorage(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerRelay(container); err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns the API container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer builds and returns the intake worker container
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(
	container *dig.Container,
	ctx context.Context,
	load func() (*config.Config, error),
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
) error {
	return provideAll(container,
		func() context.Context { return ctx },
		load,
		NewLogger,
		func() prometheus.Registerer { return reg },
		func() prometheus.Gatherer { return gatherer },
		provideMetrics,
	)
}

func registerStorage(container *dig.Container, connect dbConnectFunc) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config, logger logx.Logger) (*storage, error) {
			return newStorage(ctx, cfg, logger, connect)
		},
	)
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		newRetrier,
		newBus,
		func(bus *eventbus.Bus, logger logx.Logger) *orderevents.Publisher {
			return orderevents.NewPublisher(bus, logger)
		},
		func(st *storage, pub *orderevents.Publisher, cfg *config.Config, logger logx.Logger, m *metrics.Set) *claim.Coordinator {
			return claim.NewCoordinator(st.Orders, pub, cfg.Dispatch.OperationTimeout, logger, m.Claims)
		},
		func(
			st *storage,
			coord *claim.Coordinator,
			pub *orderevents.Publisher,
			cfg *config.Config,
			logger logx.Logger,
			m *metrics.Set,
		) *lifecycle.Machine {
			return lifecycle.NewMachine(st.Orders, coord, pub, cfg.Dispatch.OperationTimeout, logger, m.Transitions)
		},
		func(
			st *storage,
			pub *orderevents.Publisher,
			retrier *readretry.Retrier,
			cfg *config.Config,
			logger logx.Logger,
		) *orders.Service {
			return orders.NewService(st.Orders, st.Businesses, pub, retrier,
				cfg.Dispatch.DeliveryFee, cfg.Dispatch.OperationTimeout, logger)
		},
		func(svc *orders.Service, machine *lifecycle.Machine, logger logx.Logger) *orders.Processor {
			return orders.NewProcessor(svc, machine, logger)
		},
		func(st *storage, retrier *readretry.Retrier, cfg *config.Config) *dispatch.Index {
			return dispatch.NewIndex(st.Businesses, st.Orders, retrier,
				cfg.Dispatch.MaxRadiusMeters, cfg.Dispatch.OperationTimeout)
		},
		func(
			st *storage,
			pub *orderevents.Publisher,
			retrier *readretry.Retrier,
			cfg *config.Config,
			logger logx.Logger,
			m *metrics.Set,
		) *tracking.Tracker {
			return tracking.NewTracker(st.Locations, st.Orders, pub, retrier,
				cfg.Tracking.Retention, cfg.Dispatch.OperationTimeout, logger, m.LocationReports)
		},
	)
}

func newRetrier(cfg *config.Config, logger logx.Logger, m *metrics.Set) *readretry.Retrier {
	return readretry.New(readretry.Config{
		MaxAttempts: cfg.ReadRetry.MaxAttempts,
		BaseDelay:   cfg.ReadRetry.BaseDelay,
		MaxDelay:    cfg.ReadRetry.MaxDelay,
	}, logger, m.ReadRetries)
}

func newBus(cfg *config.Config, logger logx.Logger, m *metrics.Set) *eventbus.Bus {
	return eventbus.New(
		eventbus.WithQueueSize(cfg.Hub.QueueSize),
		eventbus.WithLogger(logger),
		eventbus.WithCounters(m.BusPublished, m.BusDropped),
	)
}

const relaySendTimeout = 5 * time.Second
