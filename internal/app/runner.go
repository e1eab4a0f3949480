package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/dig"

	"delivery-dispatch/internal/hub"
	"delivery-dispatch/internal/jobs"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/relay"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the API service.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the service from the container and blocks until shutdown.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	logger := containerLogger(container)
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		panic(err)
	}
}

// MustRun runs the API service with the default Runner.
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

func containerLogger(container *dig.Container) logx.Logger {
	var logger logx.Logger = logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })
	return logger
}

type appIn struct {
	dig.In
	Ctx       context.Context
	Logger    logx.Logger
	Server    *http.Server
	Pprof     *http.Server `name:"pprof_server" optional:"true"`
	Hub       *hub.Hub
	Jobs      *jobs.Manager
	Forwarder *relay.Forwarder `optional:"true"`
	Storage   *storage
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

func appRun(in appIn) error {
	if err := in.Jobs.Start(); err != nil {
		return err
	}
	stopRelay := startRelay(in.Ctx, in.Forwarder, in.Logger)

	startServer(in.Server, in.Logger, "dispatch api")
	if in.Pprof != nil {
		startServer(in.Pprof, in.Logger, "debug")
	}

	<-in.Ctx.Done()
	in.Logger.Info("shutting down dispatch service")

	// live sessions hold their handlers open; close them before draining the server
	in.Hub.Shutdown()
	gracefulShutdown(in.Server, in.Logger, shutdownTimeout)
	if in.Pprof != nil {
		gracefulShutdown(in.Pprof, in.Logger, time.Second)
	}

	jobsCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := in.Jobs.Stop(jobsCtx); err != nil {
		in.Logger.Warn("jobs stop timed out", logx.Err(err))
	}
	cancel()

	stopRelay()
	in.Storage.Close()
	return in.Ctx.Err()
}

// startRelay runs f until ctx ends. The returned func waits for it and closes the sink.
func startRelay(ctx context.Context, f *relay.Forwarder, logger logx.Logger) func() {
	if f == nil {
		return func() {}
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := f.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay stopped", logx.Err(err))
		}
	}()
	logger.Info("relay started")
	return func() {
		wg.Wait()
		if err := f.Close(); err != nil {
			logger.Warn("relay sink close error", logx.Err(err))
		}
	}
}

func startServer(server *http.Server, logger logx.Logger, name string) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", logx.String("server", name), logx.Err(err))
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Err(err))
		if err := srv.Close(); err != nil {
			logger.Warn("server close error", logx.Err(err))
		}
	}
}
