package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"delivery-dispatch/internal/metrics"
)

// provideMetrics registers the collector set. Collectors already registered
// under the same descriptor are reused.
func provideMetrics(reg prometheus.Registerer) (*metrics.Set, error) {
	s := metrics.NewSet()
	var errs []error

	adopt(reg, "http_requests_total", &s.HTTPRequests, &errs)
	adopt(reg, "http_request_duration_seconds", &s.HTTPDuration, &errs)
	adopt(reg, "order_claims_total", &s.Claims, &errs)
	adopt(reg, "order_transitions_total", &s.Transitions, &errs)
	adopt(reg, "eventbus_published_total", &s.BusPublished, &errs)
	adopt(reg, "eventbus_dropped_total", &s.BusDropped, &errs)
	adopt(reg, "hub_sessions", &s.HubSessions, &errs)
	adopt(reg, "location_reports_total", &s.LocationReports, &errs)
	adopt(reg, "read_retries_total", &s.ReadRetries, &errs)
	adopt(reg, "rate_limit_exceeded_total", &s.RateLimitExceeded, &errs)
	adopt(reg, "relay_failures_total", &s.RelayFailures, &errs)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func adopt[T prometheus.Collector](reg prometheus.Registerer, name string, c *T, errs *[]error) {
	err := reg.Register(*c)
	if err == nil {
		return
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			*c = existing
			return
		}
	}
	*errs = append(*errs, fmt.Errorf("register %s: %w", name, err))
}
