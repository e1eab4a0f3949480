package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/service/orders"
	testlog "delivery-dispatch/internal/testutil"
)

type fakeSession struct {
	ctx context.Context

	mu     sync.Mutex
	marked int
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(*sarama.ConsumerMessage, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked++
}

func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "" }
func (s *fakeSession) GenerationID() int32                      { return 0 }

func (s *fakeSession) MarkedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked
}

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string              { return "orders.intake" }
func (c fakeClaim) Partition() int32           { return 0 }
func (c fakeClaim) InitialOffset() int64       { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage {
	return c.ch
}

func claimOf(msgs ...*sarama.ConsumerMessage) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for i, m := range msgs {
		m.Offset = int64(i)
		ch <- m
	}
	close(ch)
	return fakeClaim{ch: ch}
}

func message(t *testing.T, key string, dto EventDTO) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(dto)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Key: []byte(key), Value: b}
}

func placed(eventID string) EventDTO {
	return EventDTO{
		EventID:      eventID,
		Type:         orders.EventPlaced,
		BusinessID:   "b1",
		CustomerID:   "u1",
		CustomerName: "Ann",
		Items:        []ItemDTO{{ProductID: "p1", Title: "Bread", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2}},
		Address:      AddressDTO{Text: "Main st 1", Lat: 55.75, Lng: 37.61},
	}
}

func consumerWith(rec *testlog.Recorder, h HandleFunc) *groupHandler {
	return &groupHandler{c: &Consumer{logger: rec.Logger(), handler: h}}
}

func TestConsumeClaim_SkipsUndecodableMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  func(t *testing.T) *sarama.ConsumerMessage
		log  string
	}{
		{
			name: "not json",
			msg:  func(*testing.T) *sarama.ConsumerMessage { return &sarama.ConsumerMessage{Value: []byte("not-json")} },
			log:  "intake message is not valid json, skipping",
		},
		{
			name: "blank type",
			msg:  func(t *testing.T) *sarama.ConsumerMessage { return message(t, "", EventDTO{EventID: "e1", Type: "   "}) },
			log:  "intake event type unsupported, skipping",
		},
		{
			name: "unknown type",
			msg: func(t *testing.T) *sarama.ConsumerMessage {
				return message(t, "", EventDTO{EventID: "e1", Type: "order.refunded"})
			},
			log: "intake event type unsupported, skipping",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := testlog.New()
			h := consumerWith(rec, func(context.Context, orders.IntakeEvent) error {
				t.Error("handler must not be called")
				return nil
			})

			sess := &fakeSession{ctx: context.Background()}
			require.NoError(t, h.ConsumeClaim(sess, claimOf(tc.msg(t))))
			require.Equal(t, 1, sess.MarkedCount())

			warns := rec.Find("warn", tc.log)
			require.Len(t, warns, 1)
			offset, _ := warns[0].Field("offset")
			require.Equal(t, int64(0), offset)
		})
	}
}

func TestConsumeClaim_PermanentErrorSkipsAndCommits(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	h := consumerWith(rec, func(context.Context, orders.IntakeEvent) error {
		return fmt.Errorf("create: %w", Permanent(orders.ErrRejected))
	})

	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claimOf(message(t, "o1", placed("e1")))))
	require.Equal(t, 1, sess.MarkedCount())
	require.Len(t, rec.Find("warn", "intake event rejected, skipping"), 1)
}

func TestConsumeClaim_TransientErrorStopsWithoutCommit(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	sentinel := errors.New("db down")
	calls := 0
	h := consumerWith(rec, func(context.Context, orders.IntakeEvent) error {
		calls++
		return fmt.Errorf("create: %w", sentinel)
	})

	sess := &fakeSession{ctx: context.Background()}
	err := h.ConsumeClaim(sess, claimOf(message(t, "", placed("e1")), message(t, "", placed("e2"))))
	require.ErrorIs(t, err, sentinel)
	require.Zero(t, sess.MarkedCount())
	require.Equal(t, 1, calls, "the second message waits for redelivery")
	require.Len(t, rec.Find("error", "intake event failed, will be redelivered"), 1)
}

func TestConsumeClaim_HandlesAndCommits(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var mu sync.Mutex
	var got []orders.IntakeEvent
	h := consumerWith(rec, func(_ context.Context, ev orders.IntakeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	})

	cancelled := EventDTO{EventID: "e2", Type: orders.EventCancelled, OrderID: "o1", FromStatus: "preparing"}
	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claimOf(message(t, "", placed("e1")), message(t, "o1", cancelled))))

	require.Equal(t, 2, sess.MarkedCount())
	require.Len(t, got, 2)
	require.Equal(t, "b1", got[0].Order.BusinessID)
	require.Equal(t, 2, got[0].Order.Items[0].Quantity)
	require.Equal(t, "o1", got[1].OrderID)
	require.Equal(t, "preparing", got[1].FromStatus)
}

func TestConsumeClaim_KeyStandsInForMissingEventID(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var got orders.IntakeEvent
	h := consumerWith(rec, func(_ context.Context, ev orders.IntakeEvent) error {
		got = ev
		return nil
	})

	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claimOf(message(t, " req-42 ", placed("")))))
	require.Equal(t, "req-42", got.EventID)
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	require.True(t, IsPermanent(fmt.Errorf("wrapped: %w", Permanent(errors.New("x")))))
	require.False(t, IsPermanent(errors.New("x")))
	require.ErrorIs(t, Permanent(orders.ErrRejected), orders.ErrRejected)
	require.Equal(t, "permanent intake failure", PermanentError{}.Error())
}

func TestConsumeClaim_CanonicalizesLegacyTypes(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var got []string
	h := consumerWith(rec, func(_ context.Context, ev orders.IntakeEvent) error {
		got = append(got, ev.Type)
		return nil
	})

	legacyPlaced := placed("e1")
	legacyPlaced.Type = "Order.Created"
	legacyCancel := EventDTO{EventID: "e2", Type: "order.canceled", OrderID: "o1", FromStatus: "ready"}

	sess := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claimOf(message(t, "", legacyPlaced), message(t, "", legacyCancel))))
	require.Equal(t, []string{orders.EventPlaced, orders.EventCancelled}, got)
}
