package memory

import (
	"context"
	"sort"
	"sync"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
)

// BusinessStore keeps the business directory in memory.
type BusinessStore struct {
	mu    sync.RWMutex
	items map[string]domain.Business
}

// NewBusinessStore creates a store seeded with the given businesses.
func NewBusinessStore(seed ...domain.Business) *BusinessStore {
	s := &BusinessStore{items: make(map[string]domain.Business, len(seed))}
	for _, b := range seed {
		s.items[b.ID] = b
	}
	return s
}

// Upsert adds or replaces a business.
func (s *BusinessStore) Upsert(_ context.Context, b domain.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[b.ID] = b
	return nil
}

// Get returns the business or nil if unknown.
func (s *BusinessStore) Get(ctx context.Context, id string) (*domain.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// InBox returns active and approved businesses whose coordinates fall inside box.
func (s *BusinessStore) InBox(ctx context.Context, box geo.Box) ([]domain.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Business, 0)
	for _, b := range s.items {
		if b.Dispatchable() && box.Contains(geo.Point{Lat: b.Lat, Lng: b.Lng}) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
