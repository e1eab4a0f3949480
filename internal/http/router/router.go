package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"delivery-dispatch/internal/http/handlers"
	mw "delivery-dispatch/internal/http/middleware"
	"delivery-dispatch/internal/http/middleware/ratelimit"
	"delivery-dispatch/internal/logx"
)

const defaultRequestTimeout = 5 * time.Second

// Deps lists everything the router mounts. Nil rate limiters and collectors are skipped.
type Deps struct {
	Logger   logx.Logger
	Base     *handlers.Handlers
	Orders   *handlers.OrderHandler
	Dispatch *handlers.DispatchHandler
	Tracking *handlers.TrackingHandler
	Stream   *handlers.StreamHandler
	Metrics  http.Handler

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec

	// IPLimit guards every route; ActorLimit guards location reports per courier.
	IPLimit    *ratelimit.Middleware
	ActorLimit *ratelimit.Middleware

	RequestTimeout time.Duration
}

// New constructs a chi-based http.Handler with base middleware and routes.
// Streaming endpoints are mounted outside the request timeout.
func New(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(d.Logger, d.Requests, d.Duration))
	r.Use(middleware.Recoverer)
	if d.IPLimit != nil {
		r.Use(d.IPLimit.Handler())
	}
	r.Use(mw.Actor)

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", d.Orders.Create)
			r.Get("/", d.Orders.List)
			r.Get("/{id}", d.Orders.Get)
			r.Post("/{id}/transition", d.Orders.Transition)
			r.Post("/{id}/claim", d.Orders.Claim)
		})

		r.Route("/dispatch/businesses", func(r chi.Router) {
			r.Get("/", d.Dispatch.NearbyBusinesses)
			r.Get("/{id}/orders", d.Dispatch.AvailableOrders)
		})

		r.Route("/couriers/{id}/location", func(r chi.Router) {
			r.Get("/", d.Tracking.Get)
			r.Group(func(r chi.Router) {
				if d.ActorLimit != nil {
					r.Use(d.ActorLimit.Handler())
				}
				r.Put("/", d.Tracking.Report)
			})
		})
	})

	r.Get("/ws", d.Stream.WebSocket)
	r.Get("/events", d.Stream.Events)

	r.NotFound(d.Base.NotFound)
	r.MethodNotAllowed(d.Base.MethodNotAllowed)

	return r
}
