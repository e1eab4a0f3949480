package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set holds the dispatch core collectors.
type Set struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Claims            *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	BusPublished      prometheus.Counter
	BusDropped        prometheus.Counter
	HubSessions       prometheus.Gauge
	LocationReports   prometheus.Counter
	ReadRetries       prometheus.Counter
	RateLimitExceeded prometheus.Counter
	RelayFailures     prometheus.Counter
}

// NewSet creates unregistered collectors.
func NewSet() *Set {
	return &Set{
		HTTPRequests:      NewHTTPRequestsTotal(),
		HTTPDuration:      NewHTTPRequestDuration(),
		Claims:            NewClaimsTotal(),
		Transitions:       NewTransitionsTotal(),
		BusPublished:      NewBusPublishedTotal(),
		BusDropped:        NewBusDroppedTotal(),
		HubSessions:       NewHubSessions(),
		LocationReports:   NewLocationReportsTotal(),
		ReadRetries:       NewReadRetriesTotal(),
		RateLimitExceeded: NewRateLimitExceededTotal(),
		RelayFailures:     NewRelayFailuresTotal(),
	}
}

// MustRegister registers every collector of the set.
func (s *Set) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		s.HTTPRequests,
		s.HTTPDuration,
		s.Claims,
		s.Transitions,
		s.BusPublished,
		s.BusDropped,
		s.HubSessions,
		s.LocationReports,
		s.ReadRetries,
		s.RateLimitExceeded,
		s.RelayFailures,
	)
}

// NewHTTPRequestsTotal counts served HTTP requests by method, route pattern and status.
func NewHTTPRequestsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
}

// NewHTTPRequestDuration observes HTTP request latency.
func NewHTTPRequestDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
}

// NewClaimsTotal counts claim attempts by result (won, idempotent, already_taken, not_claimable, error).
func NewClaimsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_claims_total",
		Help: "Total number of courier claim attempts by result",
	}, []string{"result"})
}

// NewTransitionsTotal counts transition requests by target status and result.
func NewTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of order status transition requests",
	}, []string{"to", "result"})
}

// NewBusPublishedTotal counts messages enqueued to subscribers.
func NewBusPublishedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eventbus_published_total",
		Help: "Total number of messages enqueued to subscribers",
	})
}

// NewBusDroppedTotal counts messages evicted from full subscriber queues.
func NewBusDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eventbus_dropped_total",
		Help: "Total number of messages dropped from full subscriber queues",
	})
}

// NewHubSessions tracks live notification sessions.
func NewHubSessions() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_sessions",
		Help: "Number of live notification sessions",
	})
}

// NewLocationReportsTotal counts accepted courier location reports.
func NewLocationReportsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "location_reports_total",
		Help: "Total number of accepted courier location reports",
	})
}

// NewReadRetriesTotal counts retry attempts of idempotent reads.
func NewReadRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "read_retries_total",
		Help: "Total number of retry attempts performed for idempotent reads",
	})
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewRelayFailuresTotal counts events the relay could not hand to the external broker.
func NewRelayFailuresTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_failures_total",
		Help: "Total number of events that failed to reach the external broker",
	})
}
