package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/service/tracking"
)

type stubTracker struct {
	reportFn func(ctx context.Context, actor domain.Actor, r tracking.Report) (domain.LocationSample, error)
	getFn    func(ctx context.Context, requester domain.Actor, courierID string) (*domain.LocationSample, error)
}

func (s *stubTracker) ReportLocation(ctx context.Context, actor domain.Actor, r tracking.Report) (domain.LocationSample, error) {
	if s.reportFn == nil {
		panic("ReportLocation not expected in this test")
	}
	return s.reportFn(ctx, actor, r)
}

func (s *stubTracker) GetLocation(ctx context.Context, requester domain.Actor, courierID string) (*domain.LocationSample, error) {
	if s.getFn == nil {
		panic("GetLocation not expected in this test")
	}
	return s.getFn(ctx, requester, courierID)
}

func TestTrackingHandler_Report(t *testing.T) {
	t.Parallel()

	received := time.Date(2025, 4, 1, 12, 0, 5, 0, time.UTC)
	tr := &stubTracker{reportFn: func(_ context.Context, actor domain.Actor, r tracking.Report) (domain.LocationSample, error) {
		assert.Equal(t, "c1", actor.ID)
		assert.Equal(t, "c1", r.CourierID, "courier id comes from the path")
		assert.InDelta(t, 90, r.Heading, 1e-9)
		return domain.LocationSample{
			CourierID:       r.CourierID,
			Lat:             r.Lat,
			Lng:             r.Lng,
			Heading:         r.Heading,
			Speed:           r.Speed,
			Accuracy:        r.Accuracy,
			ClientTimestamp: r.ClientTimestamp,
			ReceivedAt:      received,
		}, nil
	}}
	h := NewTrackingHandler(nil, tr)

	rr := do(t, http.MethodPut, "/couriers/{id}/location", "/couriers/c1/location",
		`{"lat":55.7,"lng":37.6,"heading":90,"speed":4.2,"accuracy":8,"client_timestamp":"2025-04-01T12:00:00Z"}`,
		actorOf(domain.RoleCourier, "c1"), h.Report)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"courier_id": "c1",
		"lat": 55.7,
		"lng": 37.6,
		"heading": 90,
		"speed": 4.2,
		"accuracy": 8,
		"client_timestamp": "2025-04-01T12:00:00Z",
		"received_at": "2025-04-01T12:00:05Z"
	}`, rr.Body.String())
}

func TestTrackingHandler_Report_Rejected(t *testing.T) {
	t.Parallel()

	tr := &stubTracker{reportFn: func(context.Context, domain.Actor, tracking.Report) (domain.LocationSample, error) {
		return domain.LocationSample{}, fmt.Errorf("%w: courier may only report itself", apperr.ErrForbidden)
	}}
	h := NewTrackingHandler(nil, tr)

	rr := do(t, http.MethodPut, "/couriers/{id}/location", "/couriers/c2/location", `{"lat":1,"lng":1}`,
		actorOf(domain.RoleCourier, "c1"), h.Report)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, http.MethodPut, "/couriers/{id}/location", "/couriers/c1/location", `not json`,
		actorOf(domain.RoleCourier, "c1"), h.Report)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrackingHandler_Get(t *testing.T) {
	t.Parallel()

	tr := &stubTracker{getFn: func(_ context.Context, requester domain.Actor, courierID string) (*domain.LocationSample, error) {
		if requester.Role == domain.RoleCustomer {
			return nil, fmt.Errorf("%w: no active order with courier", apperr.ErrForbidden)
		}
		if courierID == "ghost" {
			return nil, fmt.Errorf("%w: no location for courier", apperr.ErrNotFound)
		}
		return &domain.LocationSample{CourierID: courierID, Lat: 1, Lng: 2}, nil
	}}
	h := NewTrackingHandler(nil, tr)

	rr := do(t, http.MethodGet, "/couriers/{id}/location", "/couriers/c1/location", "", actorOf(domain.RoleAdmin, ""), h.Get)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"courier_id":"c1"`)

	rr = do(t, http.MethodGet, "/couriers/{id}/location", "/couriers/ghost/location", "", actorOf(domain.RoleAdmin, ""), h.Get)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, http.MethodGet, "/couriers/{id}/location", "/couriers/c1/location", "", actorOf(domain.RoleCustomer, "u1"), h.Get)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, http.MethodGet, "/couriers/{id}/location", "/couriers/c1/location", "", nil, h.Get)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
