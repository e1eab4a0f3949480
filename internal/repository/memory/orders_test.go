package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
)

func pendingOrder(id, business string, created time.Time) *domain.Order {
	return &domain.Order{
		ID:              id,
		Code:            "C-" + id,
		BusinessID:      business,
		CustomerID:      "u1",
		Status:          domain.StatusCourierPending,
		CreatedAt:       created,
		StatusChangedAt: created,
	}
}

func TestOrderStore_InsertGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewOrderStore()
	o := pendingOrder("o1", "b1", time.Now())
	require.NoError(t, s.Insert(ctx, o))

	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, o.Code, got.Code)

	got.Status = domain.StatusCancelled
	again, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCourierPending, again.Status, "stored order must not alias returned copies")

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestOrderStore_InsertDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewOrderStore()
	require.NoError(t, s.Insert(ctx, pendingOrder("o1", "b1", time.Now())))
	require.ErrorIs(t, s.Insert(ctx, pendingOrder("o1", "b1", time.Now())), apperr.ErrConflict)

	dupCode := pendingOrder("o2", "b1", time.Now())
	dupCode.Code = "C-o1"
	require.ErrorIs(t, s.Insert(ctx, dupCode), apperr.ErrConflict)
}

func TestOrderStore_CompareAndSetStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewOrderStore()
	require.NoError(t, s.Insert(ctx, pendingOrder("o1", "b1", time.Now())))

	at := time.Now().Add(time.Minute).UTC()
	got, err := s.CompareAndSetStatus(ctx, domain.StatusCAS{
		OrderID: "o1", ExpectedStatus: domain.StatusCourierPending,
		NewStatus: domain.StatusAssigned, NewCourierID: "c1", ChangedAt: at,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusAssigned, got.Status)
	require.Equal(t, "c1", got.AssignedCourierID)
	require.Equal(t, at, got.StatusChangedAt)

	stale, err := s.CompareAndSetStatus(ctx, domain.StatusCAS{
		OrderID: "o1", ExpectedStatus: domain.StatusCourierPending,
		NewStatus: domain.StatusAssigned, NewCourierID: "c2", ChangedAt: at,
	})
	require.NoError(t, err)
	require.Nil(t, stale)

	wrongCourier, err := s.CompareAndSetStatus(ctx, domain.StatusCAS{
		OrderID: "o1", ExpectedStatus: domain.StatusAssigned, ExpectedCourierID: "c2",
		NewStatus: domain.StatusPickedUp, NewCourierID: "c2", ChangedAt: at,
	})
	require.NoError(t, err)
	require.Nil(t, wrongCourier)

	missing, err := s.CompareAndSetStatus(ctx, domain.StatusCAS{OrderID: "nope"})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestOrderStore_ConcurrentCASHasSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewOrderStore()
	require.NoError(t, s.Insert(ctx, pendingOrder("o1", "b1", time.Now())))

	const k = 64
	var (
		wins  int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got, err := s.CompareAndSetStatus(ctx, domain.StatusCAS{
				OrderID: "o1", ExpectedStatus: domain.StatusCourierPending,
				NewStatus: domain.StatusAssigned, NewCourierID: string(rune('a' + i%26)), ChangedAt: time.Now(),
			})
			assert.NoError(t, err)
			if got != nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	require.EqualValues(t, 1, wins)
}

func TestOrderStore_ListAndCountClaimable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewOrderStore()
	base := time.Now()
	require.NoError(t, s.Insert(ctx, pendingOrder("o2", "b1", base.Add(time.Second))))
	require.NoError(t, s.Insert(ctx, pendingOrder("o1", "b1", base)))
	require.NoError(t, s.Insert(ctx, pendingOrder("o3", "b2", base)))
	taken := pendingOrder("o4", "b1", base)
	taken.Status = domain.StatusAssigned
	taken.AssignedCourierID = "c1"
	require.NoError(t, s.Insert(ctx, taken))

	got, err := s.List(ctx, domain.OrderFilter{BusinessID: "b1", Statuses: []domain.OrderStatus{domain.StatusCourierPending}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "o1", got[0].ID)
	require.Equal(t, "o2", got[1].ID)

	limited, err := s.List(ctx, domain.OrderFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	mine, err := s.List(ctx, domain.OrderFilter{CourierID: "c1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "o4", mine[0].ID)

	counts, err := s.CountClaimable(ctx, []string{"b1", "b2", "b3"})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"b1": 2, "b2": 1}, counts)
}

func TestOrderStore_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewOrderStore()
	_, err := s.Get(ctx, "o1")
	require.ErrorIs(t, err, context.Canceled)
}
