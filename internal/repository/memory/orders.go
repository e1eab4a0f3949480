// Package memory holds in-process stores used when no database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
)

type orderRecord struct {
	mu    sync.Mutex
	order domain.Order
}

// OrderStore keeps orders in memory. Status updates lock only the affected order.
type OrderStore struct {
	mu      sync.RWMutex
	records map[string]*orderRecord
	codes   map[string]struct{}
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		records: make(map[string]*orderRecord),
		codes:   make(map[string]struct{}),
	}
}

// Insert stores a new order. Duplicate ids or codes are a conflict.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[o.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", apperr.ErrConflict, o.ID)
	}
	if _, ok := s.codes[o.Code]; ok && o.Code != "" {
		return fmt.Errorf("%w: order code %s already exists", apperr.ErrConflict, o.Code)
	}
	s.records[o.ID] = &orderRecord{order: *o.Clone()}
	if o.Code != "" {
		s.codes[o.Code] = struct{}{}
	}
	return nil
}

// Get returns a copy of the order, or nil if it does not exist.
func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := s.record(id)
	if rec == nil {
		return nil, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.order.Clone(), nil
}

// CompareAndSetStatus applies cas atomically. It returns nil when the order is missing or the
// stored status and courier do not match the expectation.
func (s *OrderStore) CompareAndSetStatus(ctx context.Context, cas domain.StatusCAS) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := s.record(cas.OrderID)
	if rec == nil {
		return nil, nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	o := &rec.order
	if o.Status != cas.ExpectedStatus || o.AssignedCourierID != cas.ExpectedCourierID {
		return nil, nil
	}
	o.Status = cas.NewStatus
	o.AssignedCourierID = cas.NewCourierID
	o.StatusChangedAt = cas.ChangedAt
	return o.Clone(), nil
}

// List returns matching orders, oldest first.
func (s *OrderStore) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	recs := make([]*orderRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, rec := range recs {
		rec.mu.Lock()
		if f.Matches(&rec.order) {
			out = append(out, *rec.order.Clone())
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountClaimable returns the number of claimable orders per business for the given ids.
// Businesses without claimable orders are absent from the result.
func (s *OrderStore) CountClaimable(ctx context.Context, businessIDs []string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(businessIDs))
	for _, id := range businessIDs {
		want[id] = struct{}{}
	}

	s.mu.RLock()
	recs := make([]*orderRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make(map[string]int)
	for _, rec := range recs {
		rec.mu.Lock()
		if _, ok := want[rec.order.BusinessID]; ok && rec.order.Claimable() {
			out[rec.order.BusinessID]++
		}
		rec.mu.Unlock()
	}
	return out, nil
}

func (s *OrderStore) record(id string) *orderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}
