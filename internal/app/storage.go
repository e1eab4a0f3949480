package app

import (
	"context"
	"fmt"
	"time"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/repository"
	"delivery-dispatch/internal/repository/memory"
)

type orderStore interface {
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	CompareAndSetStatus(ctx context.Context, cas domain.StatusCAS) (*domain.Order, error)
	CountClaimable(ctx context.Context, businessIDs []string) (map[string]int, error)
}

type businessStore interface {
	Upsert(ctx context.Context, b domain.Business) error
	Get(ctx context.Context, id string) (*domain.Business, error)
	InBox(ctx context.Context, box geo.Box) ([]domain.Business, error)
}

// storage bundles the selected backend. Courier locations are always kept in
// memory: they are short-lived and rebuilt from the next report.
type storage struct {
	Orders     orderStore
	Businesses businessStore
	Locations  *memory.LocationStore
	ping       func(context.Context) error
	close      func()
}

// Ping reports whether the backend is reachable. Memory storage always is.
func (s *storage) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend.
func (s *storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

func newStorage(ctx context.Context, cfg *config.Config, logger logx.Logger, connect dbConnectFunc) (*storage, error) {
	seed, err := loadBusinessSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	var st *storage
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := connect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		st = &storage{
			Orders:     repository.NewOrderRepo(pool),
			Businesses: repository.NewBusinessRepo(pool),
			Locations:  memory.NewLocationStore(),
			ping:       pool.Ping,
			close:      pool.Close,
		}
	case config.StorageMemory:
		st = &storage{
			Orders:     memory.NewOrderStore(),
			Businesses: memory.NewBusinessStore(),
			Locations:  memory.NewLocationStore(),
		}
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	for _, b := range seed {
		if err := st.Businesses.Upsert(ctx, b); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed business %s: %w", b.ID, err)
		}
	}
	logger.Info("storage ready", logx.String("backend", cfg.Storage), logx.Int("seeded_businesses", len(seed)))
	return st, nil
}
