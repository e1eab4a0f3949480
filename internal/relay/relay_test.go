package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/eventbus"
	testlog "delivery-dispatch/internal/testutil"
)

type recordingSink struct {
	mu     sync.Mutex
	got    []eventbus.Message
	fail   func(eventbus.Message) error
	closed bool
}

func (s *recordingSink) Send(_ context.Context, msg eventbus.Message) error {
	if s.fail != nil {
		if err := s.fail(msg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, m := range s.got {
		out = append(out, m.Type)
	}
	return out
}

type countingCounter struct{ n atomic.Int64 }

func (c *countingCounter) Inc() { c.n.Add(1) }

func startForwarder(t *testing.T, f *Forwarder, bus *eventbus.Bus) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(eventbus.AdminTopic) == 1
	}, time.Second, 5*time.Millisecond)

	return func() error {
		cancel()
		return <-errCh
	}
}

func TestForwarder_ForwardsAdminTopicOnly(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	sink := &recordingSink{}
	f := NewForwarder(bus, sink, nil, nil, time.Second)
	stop := startForwarder(t, f, bus)

	bus.Publish(eventbus.Message{Type: "order.created", Key: "o1"}, eventbus.AdminTopic, eventbus.BusinessTopic("b1"))
	bus.Publish(eventbus.Message{Type: "order.claimable", Key: "o1"}, eventbus.CourierPoolTopic)
	bus.Publish(eventbus.Message{Type: "order.status_changed", Key: "o1"}, eventbus.AdminTopic)

	require.Eventually(t, func() bool { return len(sink.Types()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"order.created", "order.status_changed"}, sink.Types())

	require.ErrorIs(t, stop(), context.Canceled)
	require.Zero(t, bus.SubscriberCount(eventbus.AdminTopic))

	require.NoError(t, f.Close())
	require.True(t, sink.closed)
}

func TestForwarder_SendFailureIsCountedAndSkipped(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	rec := testlog.New()
	failures := &countingCounter{}
	sink := &recordingSink{fail: func(m eventbus.Message) error {
		if m.Key == "bad" {
			return errors.New("broker down")
		}
		return nil
	}}
	f := NewForwarder(bus, sink, rec.Logger(), failures, time.Second)
	stop := startForwarder(t, f, bus)

	bus.Publish(eventbus.Message{Type: "order.created", Key: "bad"}, eventbus.AdminTopic)
	bus.Publish(eventbus.Message{Type: "order.created", Key: "ok"}, eventbus.AdminTopic)

	require.Eventually(t, func() bool { return len(sink.Types()) == 1 }, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	assert.Equal(t, int64(1), failures.n.Load())
	warns := rec.Find("warn", "relay send failed")
	require.Len(t, warns, 1)
	key, ok := warns[0].Field("key")
	require.True(t, ok)
	assert.Equal(t, "bad", key)
}

func TestForwarder_StopsWhenBusCloses(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	f := NewForwarder(bus, &recordingSink{}, nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(eventbus.AdminTopic) == 1
	}, time.Second, 5*time.Millisecond)

	bus.Close()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after bus close")
	}
}

func TestForwarder_LogsLagOnce(t *testing.T) {
	t.Parallel()

	bus := eventbus.New(eventbus.WithQueueSize(1))
	rec := testlog.New()
	release := make(chan struct{})
	sink := &recordingSink{fail: func(eventbus.Message) error {
		<-release
		return nil
	}}
	f := NewForwarder(bus, sink, rec.Logger(), nil, time.Second)
	stop := startForwarder(t, f, bus)

	bus.Publish(eventbus.Message{Type: "a"}, eventbus.AdminTopic)
	for i := 0; i < 5; i++ {
		bus.Publish(eventbus.Message{Type: "b"}, eventbus.AdminTopic)
	}
	close(release)

	require.Eventually(t, func() bool {
		return len(rec.Find("warn", "relay lagging, events dropped")) == 1
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)
	require.Len(t, rec.Find("warn", "relay lagging, events dropped"), 1)
}
