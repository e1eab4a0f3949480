package memory

import (
	"context"
	"sync"
	"time"

	"delivery-dispatch/internal/domain"
)

// LocationStore keeps the last sample per courier.
type LocationStore struct {
	mu      sync.RWMutex
	samples map[string]domain.LocationSample
}

// NewLocationStore creates an empty LocationStore.
func NewLocationStore() *LocationStore {
	return &LocationStore{samples: make(map[string]domain.LocationSample)}
}

// Put replaces the courier's sample unless the stored one was received later.
func (s *LocationStore) Put(ctx context.Context, sample domain.LocationSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.samples[sample.CourierID]; ok && cur.ReceivedAt.After(sample.ReceivedAt) {
		return nil
	}
	s.samples[sample.CourierID] = sample
	return nil
}

// Get returns the last sample or nil.
func (s *LocationStore) Get(ctx context.Context, courierID string) (*domain.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.samples[courierID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// EvictOlderThan drops samples received before cutoff and returns how many were removed.
func (s *LocationStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.samples {
		if v.ReceivedAt.Before(cutoff) {
			delete(s.samples, id)
			n++
		}
	}
	return n, nil
}
