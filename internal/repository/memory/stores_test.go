package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
)

func TestBusinessStore_InBoxSkipsInactive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewBusinessStore(
		domain.Business{ID: "b1", Lat: 55.75, Lng: 37.61, Active: true, Approved: true},
		domain.Business{ID: "b2", Lat: 55.751, Lng: 37.611, Active: false, Approved: true},
		domain.Business{ID: "b3", Lat: 55.752, Lng: 37.612, Active: true, Approved: false},
		domain.Business{ID: "b4", Lat: 59.93, Lng: 30.31, Active: true, Approved: true},
	)

	box := geo.BoundingBox(geo.Point{Lat: 55.75, Lng: 37.61}, 2000)
	got, err := s.InBox(ctx, box)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b1", got[0].ID)

	b, err := s.Get(ctx, "b2")
	require.NoError(t, err)
	require.NotNil(t, b)

	none, err := s.Get(ctx, "zzz")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestLocationStore_PutGetEvict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewLocationStore()
	now := time.Now()

	require.NoError(t, s.Put(ctx, domain.LocationSample{CourierID: "c1", Lat: 1, ReceivedAt: now}))
	require.NoError(t, s.Put(ctx, domain.LocationSample{CourierID: "c1", Lat: 2, ReceivedAt: now.Add(-time.Second)}))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1.0, got.Lat, "older sample must not overwrite a newer one")

	require.NoError(t, s.Put(ctx, domain.LocationSample{CourierID: "c2", ReceivedAt: now.Add(-time.Hour)}))
	n, err := s.EvictOlderThan(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	gone, err := s.Get(ctx, "c2")
	require.NoError(t, err)
	require.Nil(t, gone)
}
