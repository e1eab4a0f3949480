// Package jobs runs the periodic maintenance of the dispatch core on a
// seconds-precision cron schedule: heartbeat sweeps of hub sessions, eviction
// of expired courier locations and refresh of the session gauge.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"delivery-dispatch/internal/logx"
)

const (
	defaultTaskTimeout = 30 * time.Second
	evictionSpec       = "@every 1m"
	gaugeSpec          = "@every 30s"
)

// Task is a named periodic function.
type Task struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type sweeper interface {
	Sweep() int
	RefreshGauge()
}

type evictor interface {
	EvictStale(ctx context.Context) (int, error)
}

// Manager owns the cron scheduler and its tasks.
type Manager struct {
	cron        *cron.Cron
	tasks       []Task
	logger      logx.Logger
	taskTimeout time.Duration
}

// NewManager schedules the hub sweep every heartbeat interval plus location
// eviction and gauge refresh.
func NewManager(logger logx.Logger, hub sweeper, locations evictor, heartbeat time.Duration) *Manager {
	if heartbeat < time.Second {
		heartbeat = time.Second
	}
	return newManager(logger,
		Task{
			Name: "heartbeat_sweep",
			Spec: "@every " + heartbeat.String(),
			Run: func(context.Context) error {
				hub.Sweep()
				return nil
			},
		},
		Task{
			Name: "location_eviction",
			Spec: evictionSpec,
			Run: func(ctx context.Context) error {
				_, err := locations.EvictStale(ctx)
				return err
			},
		},
		Task{
			Name: "session_gauge",
			Spec: gaugeSpec,
			Run: func(context.Context) error {
				hub.RefreshGauge()
				return nil
			},
		},
	)
}

func newManager(logger logx.Logger, tasks ...Task) *Manager {
	if logger == nil {
		logger = logx.Nop()
	}
	logger = logger.With(logx.String("component", "jobs"))
	cl := cronLogger{l: logger}
	return &Manager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		tasks:       tasks,
		logger:      logger,
		taskTimeout: defaultTaskTimeout,
	}
}

// Start registers every task and starts the scheduler.
func (m *Manager) Start() error {
	for _, task := range m.tasks {
		if _, err := m.cron.AddFunc(task.Spec, func() { m.run(task) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", task.Name, task.Spec, err)
		}
	}
	m.cron.Start()
	m.logger.Info("jobs started", logx.Int("tasks", len(m.tasks)))
	return nil
}

// Stop stops scheduling and waits for running tasks until ctx expires.
func (m *Manager) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		m.logger.Info("jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), m.taskTimeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		m.logger.Error("job failed", logx.String("job", task.Name), logx.Err(err))
		return
	}
	m.logger.Debug("job done", logx.String("job", task.Name), logx.Duration("took", time.Since(start)))
}

// cronLogger routes the scheduler's own messages into logx.
type cronLogger struct {
	l logx.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logx.Any(key, kv[i+1]))
	}
	return out
}
