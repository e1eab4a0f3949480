// Package dispatch answers the courier-side questions: which businesses are near me, and which
// of their orders can I take.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/service/readretry"
)

// Index is the read-only geo view over businesses and claimable orders.
type Index struct {
	businesses       businessDirectory
	orders           orderReader
	retrier          *readretry.Retrier
	maxRadius        float64
	operationTimeout time.Duration
}

// NewIndex creates an Index. Radii above maxRadiusMeters are rejected; zero disables the limit.
func NewIndex(b businessDirectory, o orderReader, r *readretry.Retrier, maxRadiusMeters float64, timeout time.Duration) *Index {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Index{
		businesses:       b,
		orders:           o,
		retrier:          r,
		maxRadius:        maxRadiusMeters,
		operationTimeout: timeout,
	}
}

func (x *Index) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, x.operationTimeout)
}

// NearbyBusinesses returns active, approved businesses within radiusMeters of (lat, lng), nearest
// first, each annotated with its claimable order count.
func (x *Index) NearbyBusinesses(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.NearbyBusiness, error) {
	center := geo.Point{Lat: lat, Lng: lng}
	if !center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", apperr.ErrInvalid)
	}
	if x.maxRadius > 0 && radiusMeters > x.maxRadius {
		return nil, fmt.Errorf("%w: radius exceeds %.0f meters", apperr.ErrInvalid, x.maxRadius)
	}

	ctx, cancel := x.withTimeout(ctx)
	defer cancel()

	candidates, err := readretry.Do(ctx, x.retrier, "businesses.in_box",
		func(ctx context.Context) ([]domain.Business, error) {
			return x.businesses.InBox(ctx, geo.BoundingBox(center, radiusMeters))
		})
	if err != nil {
		return nil, fmt.Errorf("nearby businesses: %w", err)
	}

	out := make([]domain.NearbyBusiness, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, b := range candidates {
		if !b.Dispatchable() {
			continue
		}
		d := geo.Distance(center, geo.Point{Lat: b.Lat, Lng: b.Lng})
		if d > radiusMeters {
			continue
		}
		out = append(out, domain.NearbyBusiness{Business: b, DistanceMeters: d})
		ids = append(ids, b.ID)
	}
	if len(out) == 0 {
		return out, nil
	}

	counts, err := readretry.Do(ctx, x.retrier, "orders.count_claimable",
		func(ctx context.Context) (map[string]int, error) {
			return x.orders.CountClaimable(ctx, ids)
		})
	if err != nil {
		return nil, fmt.Errorf("nearby businesses: %w", err)
	}
	for i := range out {
		n := counts[out[i].Business.ID]
		out[i].ClaimableCount = n
		out[i].HasClaimable = n > 0
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Business.ID < out[j].Business.ID
	})
	return out, nil
}

// AvailableOrders lists the claimable orders of a business, oldest first. Unknown or blank
// business ids yield an empty list.
func (x *Index) AvailableOrders(ctx context.Context, businessID string) ([]domain.AvailableOrder, error) {
	businessID = strings.TrimSpace(businessID)
	out := make([]domain.AvailableOrder, 0)
	if businessID == "" {
		return out, nil
	}

	ctx, cancel := x.withTimeout(ctx)
	defer cancel()

	orders, err := readretry.Do(ctx, x.retrier, "orders.list_claimable",
		func(ctx context.Context) ([]domain.Order, error) {
			return x.orders.List(ctx, domain.OrderFilter{
				BusinessID: businessID,
				Statuses:   []domain.OrderStatus{domain.StatusCourierPending},
			})
		})
	if err != nil {
		return nil, fmt.Errorf("available orders: %w", err)
	}

	for i := range orders {
		o := &orders[i]
		if !o.Claimable() {
			continue
		}
		out = append(out, domain.AvailableOrder{
			OrderID:      o.ID,
			Code:         o.Code,
			CustomerName: o.CustomerName,
			Address:      o.Address,
			ItemCount:    o.ItemCount(),
			Total:        o.Total,
			DeliveryFee:  o.DeliveryFee,
			Notes:        o.Notes,
		})
	}
	return out, nil
}
