package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/http/middleware/ratelimit"
	"delivery-dispatch/internal/http/pprofserver"
	"delivery-dispatch/internal/http/router"
	"delivery-dispatch/internal/hub"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/service/claim"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/service/lifecycle"
	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/service/tracking"
)

type routerIn struct {
	dig.In
	Config     *config.Config
	Logger     logx.Logger
	Metrics    *metrics.Set
	Gatherer   prometheus.Gatherer
	Base       *handlers.Handlers
	Orders     *handlers.OrderHandler
	Dispatch   *handlers.DispatchHandler
	Tracking   *handlers.TrackingHandler
	Stream     *handlers.StreamHandler
	IPLimit    *ratelimit.Middleware `name:"ip_rate_limit" optional:"true"`
	ActorLimit *ratelimit.Middleware `name:"actor_rate_limit" optional:"true"`
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Logger:         in.Logger,
		Base:           in.Base,
		Orders:         in.Orders,
		Dispatch:       in.Dispatch,
		Tracking:       in.Tracking,
		Stream:         in.Stream,
		Metrics:        promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{}),
		Requests:       in.Metrics.HTTPRequests,
		Duration:       in.Metrics.HTTPDuration,
		IPLimit:        in.IPLimit,
		ActorLimit:     in.ActorLimit,
		RequestTimeout: in.Config.Dispatch.OperationTimeout + 2*time.Second,
	})
}

type serversOut struct {
	dig.Out
	Main  *http.Server
	Pprof *http.Server `name:"pprof_server"`
}

// newServers builds the API server and, when an address is configured, the debug server.
func newServers(cfg *config.Config, mux http.Handler) serversOut {
	out := serversOut{Main: &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
	if cfg.Pprof.Addr != "" {
		out.Pprof = pprofserver.NewServer(pprofserver.Config{
			Addr: cfg.Pprof.Addr,
			User: cfg.Pprof.User,
			Pass: cfg.Pprof.Pass,
		})
	}
	return out
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		func(l logx.Logger, st *storage) *handlers.Handlers {
			return handlers.New(l).WithReadiness(st.Ping)
		},
		func(l logx.Logger, o *orders.Service, m *lifecycle.Machine, c *claim.Coordinator) *handlers.OrderHandler {
			return handlers.NewOrderHandler(l, o, m, c)
		},
		func(l logx.Logger, idx *dispatch.Index) *handlers.DispatchHandler {
			return handlers.NewDispatchHandler(l, idx)
		},
		func(l logx.Logger, t *tracking.Tracker) *handlers.TrackingHandler {
			return handlers.NewTrackingHandler(l, t)
		},
		func(l logx.Logger, h *hub.Hub) *handlers.StreamHandler {
			return handlers.NewStreamHandler(l, h)
		},
		newRateLimitClock,
		newRateLimitMiddlewares,
		newRouter,
		newServers,
	)
}
