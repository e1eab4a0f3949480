// Package tracking keeps the last known position of each courier and streams it to the parties
// of the courier's active orders.
package tracking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/readretry"
)

// Report is a position reported by a courier device.
type Report struct {
	CourierID       string
	Lat             float64
	Lng             float64
	Heading         float64
	Speed           float64
	Accuracy        float64
	ClientTimestamp time.Time
}

// Tracker stores courier positions and decides who may read them.
type Tracker struct {
	samples          sampleStore
	orders           orderReader
	stream           streamer
	retrier          *readretry.Retrier
	retention        time.Duration
	operationTimeout time.Duration
	logger           logx.Logger
	reports          counter
	now              func() time.Time
}

// NewTracker creates a Tracker. Samples older than retention are dropped by EvictStale.
func NewTracker(
	samples sampleStore,
	orders orderReader,
	stream streamer,
	retrier *readretry.Retrier,
	retention, timeout time.Duration,
	logger logx.Logger,
	reports counter,
) *Tracker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Tracker{
		samples:          samples,
		orders:           orders,
		stream:           stream,
		retrier:          retrier,
		retention:        retention,
		operationTimeout: timeout,
		logger:           logger,
		reports:          reports,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tracker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.operationTimeout)
}

// ReportLocation records the acting courier's position and pushes it to watchers of the
// courier's active orders. Streaming failures never fail the report.
func (t *Tracker) ReportLocation(ctx context.Context, actor domain.Actor, r Report) (domain.LocationSample, error) {
	r.CourierID = strings.TrimSpace(r.CourierID)
	if actor.Role != domain.RoleCourier || actor.ID == "" || actor.ID != r.CourierID {
		return domain.LocationSample{}, fmt.Errorf("%w: couriers report only their own location", apperr.ErrForbidden)
	}
	if err := validate(r); err != nil {
		return domain.LocationSample{}, err
	}

	sample := domain.LocationSample{
		CourierID:       r.CourierID,
		Lat:             r.Lat,
		Lng:             r.Lng,
		Heading:         r.Heading,
		Speed:           r.Speed,
		Accuracy:        r.Accuracy,
		ClientTimestamp: r.ClientTimestamp,
		ReceivedAt:      t.now(),
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if err := t.samples.Put(ctx, sample); err != nil {
		return domain.LocationSample{}, fmt.Errorf("store location of %s: %w", sample.CourierID, err)
	}
	if t.reports != nil {
		t.reports.Inc()
	}

	active, err := t.activeOrders(ctx, domain.OrderFilter{CourierID: sample.CourierID})
	if err != nil {
		t.logger.Warn("location not streamed",
			logx.CourierID(sample.CourierID),
			logx.Err(err),
		)
		return sample, nil
	}
	t.stream.CourierLocation(ctx, sample, active)
	return sample, nil
}

// GetLocation returns the courier's last known position. Couriers may read their own, admins
// anyone's, and customers only that of a courier currently delivering one of their orders.
func (t *Tracker) GetLocation(ctx context.Context, requester domain.Actor, courierID string) (*domain.LocationSample, error) {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return nil, fmt.Errorf("%w: courier id is required", apperr.ErrInvalid)
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	switch {
	case requester.Role == domain.RoleAdmin:
	case requester.Role == domain.RoleCourier && requester.ID == courierID:
	case requester.Role == domain.RoleCustomer && requester.ID != "":
		shared, err := t.activeOrders(ctx, domain.OrderFilter{CourierID: courierID, CustomerID: requester.ID})
		if err != nil {
			return nil, fmt.Errorf("check location access: %w", err)
		}
		if len(shared) == 0 {
			return nil, fmt.Errorf("%w: no active order with courier %s", apperr.ErrForbidden, courierID)
		}
	default:
		return nil, fmt.Errorf("%w: location of courier %s", apperr.ErrForbidden, courierID)
	}

	s, err := readretry.Do(ctx, t.retrier, "locations.get",
		func(ctx context.Context) (*domain.LocationSample, error) {
			return t.samples.Get(ctx, courierID)
		})
	if err != nil {
		return nil, fmt.Errorf("get location of %s: %w", courierID, err)
	}
	if s == nil || s.ReceivedAt.Before(t.now().Add(-t.retention)) {
		return nil, fmt.Errorf("%w: no recent location for courier %s", apperr.ErrNotFound, courierID)
	}
	return s, nil
}

// EvictStale drops samples older than the retention window.
func (t *Tracker) EvictStale(ctx context.Context) (int, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	n, err := t.samples.EvictOlderThan(ctx, t.now().Add(-t.retention))
	if err != nil {
		return 0, fmt.Errorf("evict stale locations: %w", err)
	}
	if n > 0 {
		t.logger.Debug("stale locations evicted", logx.Int("count", n))
	}
	return n, nil
}

func (t *Tracker) activeOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	f.Statuses = domain.ActiveStatuses()
	return readretry.Do(ctx, t.retrier, "orders.list_active",
		func(ctx context.Context) ([]domain.Order, error) {
			return t.orders.List(ctx, f)
		})
}

func validate(r Report) error {
	if !(geo.Point{Lat: r.Lat, Lng: r.Lng}).Valid() {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	for _, v := range []float64{r.Heading, r.Speed, r.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite telemetry", apperr.ErrInvalid)
		}
	}
	if r.Heading < 0 || r.Heading >= 360 {
		return fmt.Errorf("%w: heading must be in [0, 360)", apperr.ErrInvalid)
	}
	if r.Speed < 0 || r.Accuracy < 0 {
		return fmt.Errorf("%w: speed and accuracy must not be negative", apperr.ErrInvalid)
	}
	return nil
}
