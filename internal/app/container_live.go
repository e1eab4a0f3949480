package app

import (
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/eventbus"
	"delivery-dispatch/internal/hub"
	"delivery-dispatch/internal/jobs"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/service/tracking"
)

func registerLive(container *dig.Container) error {
	return provideAll(container,
		func(bus *eventbus.Bus, cfg *config.Config, logger logx.Logger, m *metrics.Set) *hub.Hub {
			return hub.New(bus, hub.Config{
				HeartbeatInterval: cfg.Hub.HeartbeatInterval,
				Grace:             cfg.Hub.Grace,
				WriteTimeout:      cfg.Hub.WriteTimeout,
			}, logger, m.HubSessions)
		},
		func(logger logx.Logger, h *hub.Hub, tracker *tracking.Tracker, cfg *config.Config) *jobs.Manager {
			return jobs.NewManager(logger, h, tracker, cfg.Hub.HeartbeatInterval)
		},
	)
}
